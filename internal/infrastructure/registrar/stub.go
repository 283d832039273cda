package registrar

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"certlink/internal/domain/certificate"
)

// Stub accepts every upload and fabricates an identifier. It is used when no
// registration backend is configured.
type Stub struct{}

var _ certificate.Registrar = Stub{}

func (Stub) Register(ctx context.Context, upload certificate.UploadRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := "cert-" + uuid.NewString()
	log.Debug().
		Str("client_id", upload.ClientID).
		Str("certificate_id", id).
		Int("file_size", len(upload.File)).
		Msg("Stub registrar accepted certificate")
	return id, nil
}
