package certificate

import "context"

// Registrar submits a certificate file to the registration backend and returns
// the identifier it assigned. A rejection should be reported as *RegistrationError.
type Registrar interface {
	Register(ctx context.Context, req UploadRequest) (string, error)
}
