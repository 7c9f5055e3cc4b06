package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/agristore-backend/pkg/backend"
	"github.com/angelmondragon/agristore-backend/pkg/backend/memory"
	"github.com/angelmondragon/agristore-backend/pkg/config"
	"github.com/angelmondragon/agristore-backend/pkg/firebase"
	"github.com/angelmondragon/agristore-backend/pkg/firestore"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
	"github.com/angelmondragon/agristore-backend/pkg/metrics"
	"github.com/angelmondragon/agristore-backend/pkg/security"
	"github.com/angelmondragon/agristore-backend/pkg/storage/gcs"
)

// backends holds the collaborators selected by AGRISTORE_BACKEND_DRIVER.
type backends struct {
	auth      backend.Auth
	documents backend.DocumentStore
	blobs     backend.BlobStore
	closers   []io.Closer
}

func (b *backends) Close() error {
	var err error
	for i := len(b.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, b.closers[i].Close())
	}
	return err
}

func newBackends(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logg *logger.Logger) (*backends, error) {
	observer := metrics.NewBackendMetrics(reg)

	if cfg.Backend.IsMemory() {
		logg.Warn(ctx, "using in-memory backend; data is lost on restart")
		return &backends{
			auth:      memory.NewAuth(security.NewPasswordHasher(cfg.Password)),
			documents: backend.InstrumentDocumentStore(memory.NewStore(), observer),
			blobs:     backend.InstrumentBlobStore(memory.NewBlobStore(""), observer),
		}, nil
	}

	b := &backends{}
	docs, err := firestore.NewClient(ctx, cfg.GCP, cfg.Firebase, logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap firestore: %w", err)
	}
	b.closers = append(b.closers, docs)

	blobs, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("bootstrap gcs: %w", err), b.Close())
	}
	b.closers = append(b.closers, blobs)

	idp, err := firebase.NewAuth(ctx, cfg.GCP, cfg.Firebase, logg)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("bootstrap firebase auth: %w", err), b.Close())
	}

	b.auth = idp
	b.documents = backend.InstrumentDocumentStore(docs, observer)
	b.blobs = backend.InstrumentBlobStore(blobs, observer)
	return b, nil
}
