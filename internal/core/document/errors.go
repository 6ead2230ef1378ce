package document

import "fmt"

// ValidationError rejects caller input before anything is sent to Siigo.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func missing(field string) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf("El campo %s es requerido", field)}
}

// NumberingError means no free document number was found after the allowed attempts.
type NumberingError struct {
	Attempts   int
	LastNumber int64
	Err        error
}

func (e *NumberingError) Error() string {
	return fmt.Sprintf("No fue posible asignar un número automáticamente tras %d intentos (último: %d)", e.Attempts, e.LastNumber)
}

func (e *NumberingError) Unwrap() error { return e.Err }
