package service

import (
	"context"
	"time"

	"github.com/bamzi/jobrunner"
	"github.com/mimiro-io/entity-variable-datalayer/internal/conf"
	"github.com/mimiro-io/entity-variable-datalayer/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// PartitionJob keeps the monthly partitions ahead of the clock.
type PartitionJob struct {
	provisioner *store.PartitionProvisioner
	timeout     time.Duration
	logger      *zap.SugaredLogger
}

func NewPartitionJob(provisioner *store.PartitionProvisioner, logger *zap.SugaredLogger) *PartitionJob {
	return &PartitionJob{
		provisioner: provisioner,
		timeout:     5 * time.Minute,
		logger:      logger.Named("partition-job"),
	}
}

func (j *PartitionJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	if err := j.provisioner.Refresh(ctx); err != nil {
		j.logger.Warnf("Partition refresh failed: %v", err)
	}
}

// SchedulePartitionJob runs the job once at start, then on the refresh schedule.
func SchedulePartitionJob(lc fx.Lifecycle, env *conf.Env, job *PartitionJob) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			jobrunner.Now(job)
			return jobrunner.Schedule(env.Partitions.RefreshSchedule, job)
		},
	})
}
