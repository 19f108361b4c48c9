package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"permit-portal-api/config"
	"permit-portal-api/models"
	"permit-portal-api/repository"
	"permit-portal-api/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container holds the stores and services built from one Config.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *gorm.DB
	Records   repository.RecordStore
	Artifacts storage.ArtifactStore
	Locker    SubmissionLocker

	Lifecycle  *LifecycleService
	Documents  *DocumentSetManager
	Deletion   *DeletionService
	Intake     *SubmissionIntake
	Reconciler *DeadlineReconciler

	closers []func() error
}

// NewContainer connects the configured record store, artifact store and lock
// backend and wires the workflow services on top.
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Container{Config: cfg, Logger: logger}

	if err := c.initRecords(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initArtifacts(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initLocker(ctx); err != nil {
		c.Close()
		return nil, err
	}

	windows := DeadlineWindows{
		Payment:  cfg.Workflow.PaymentWindow,
		Renotice: cfg.Workflow.RenoticeWindow,
		Revision: cfg.Workflow.RevisionWindow,
	}
	c.Lifecycle = NewLifecycleService(c.Records, c.Locker, windows, logger.Named("lifecycle"))
	c.Documents = NewDocumentSetManager(c.Records, c.Artifacts, c.Lifecycle, logger.Named("documents"))
	c.Deletion = NewDeletionService(c.Records, c.Artifacts, c.Locker, logger.Named("deletion"))
	c.Intake = NewSubmissionIntake(c.Records, c.Artifacts, logger.Named("intake"))
	c.Reconciler = NewDeadlineReconciler(c.Records, c.Lifecycle, nil, logger.Named("reconciler"))
	return c, nil
}

func (c *Container) initRecords() error {
	switch c.Config.Database.Driver {
	case "memory":
		store := repository.NewMemoryRecordStore()
		seedApplications(store)
		c.Records = store
		c.Logger.Warn("using in-memory record store; data is lost on restart")
	default:
		db, err := config.InitDB(c.Config)
		if err != nil {
			return err
		}
		c.DB = db
		c.closers = append(c.closers, func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		c.Records = repository.NewGormRecordStore(db)
	}
	return nil
}

func (c *Container) initArtifacts(ctx context.Context) error {
	st := c.Config.Storage
	switch st.Driver {
	case "s3":
		store, err := storage.NewS3ArtifactStore(ctx, storage.S3Options{
			Bucket:   st.S3Bucket,
			Region:   st.S3Region,
			Prefix:   st.S3Prefix,
			Endpoint: st.S3Endpoint,
		})
		if err != nil {
			return err
		}
		c.Artifacts = store
	default:
		store, err := storage.NewLocalArtifactStore(st.LocalRoot, st.PublicBaseURL)
		if err != nil {
			return err
		}
		c.Artifacts = store
	}
	return nil
}

func (c *Container) initLocker(ctx context.Context) error {
	lc := c.Config.Lock
	switch lc.Driver {
	case "mysql":
		if c.DB == nil {
			return errors.New("mysql lock driver requires the mysql record store")
		}
		c.Locker = NewMySQLLocker(c.DB, lc.WaitTimeout, c.Logger.Named("lock"))
	case "redis":
		client, err := config.NewRedisClient(ctx, lc)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, client.Close)
		c.Locker = NewRedisLocker(client, lc.TTL, lc.WaitTimeout, c.Logger.Named("lock"))
	default:
		c.Locker = NewLocalLocker(lc.WaitTimeout)
	}
	return nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("close container: %w", errors.Join(errs...))
	}
	return nil
}

func seedApplications(store *repository.MemoryRecordStore) {
	now := time.Now()
	store.PutApplication(models.Application{
		ApplicationID:  1,
		Title:          "Building Permit",
		Type:           models.ApplicationTypePermit,
		Description:    "New construction, renovation or extension of a structure.",
		Requirements:   []string{"Site plan", "Proof of ownership", "Structural plans"},
		ApplicationFee: 500,
		ProcessingFee:  1500,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	store.PutApplication(models.Application{
		ApplicationID:  2,
		Title:          "Certificate of Occupancy",
		Type:           models.ApplicationTypeCertificate,
		Description:    "Certifies a completed structure is fit for use.",
		Requirements:   []string{"Completion report", "Inspection clearance"},
		ApplicationFee: 300,
		ProcessingFee:  700,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}
