package bootstrap

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"pdf-to-word/internal/domain"
	"pdf-to-word/internal/submit"
)

// service routes controller calls to the client for the current settings,
// so a changed service URL applies to the next job without a restart.
type service struct {
	mu     sync.RWMutex
	client *submit.Client
	log    *zap.Logger
}

// newService builds a service bound to settings.
func newService(settings domain.Settings, log *zap.Logger) (*service, error) {
	s := &service{log: log}
	if err := s.reconfigure(settings); err != nil {
		return nil, err
	}
	return s, nil
}

// reconfigure swaps in a client for settings. In-flight calls keep the old client.
func (s *service) reconfigure(settings domain.Settings) error {
	client, err := submit.New(settings.ServiceURL,
		submit.WithTimeout(settings.RequestTimeout()),
		submit.WithLogger(s.log),
	)
	if err != nil {
		return fmt.Errorf("configure conversion service: %w", err)
	}

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()
	return nil
}

func (s *service) current() *submit.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// Submit implements jobs.Submitter.
func (s *service) Submit(ctx context.Context, file domain.FileRef) (domain.Outcome, error) {
	return s.current().Submit(ctx, file)
}

// Cleanup implements jobs.Notifier and present.Notifier.
func (s *service) Cleanup(ctx context.Context) error {
	return s.current().Cleanup(ctx)
}

// Download saves a converted artifact under dir.
func (s *service) Download(ctx context.Context, ref domain.DownloadRef, dir string) (string, error) {
	return s.current().Download(ctx, ref, dir)
}
