package service

import (
	"context"
	"sync"

	"healthmatch/pkg/logger"
	"healthmatch/pkg/metrics"
	"healthmatch/pkg/model"
)

const (
	UnknownUser    = "Unknown user"
	UnknownService = "Unknown service"
)

type partyNames struct {
	client       string
	professional string
	service      string
}

// lookup resolves display names for one call. Every id is fetched at most
// once; failed lookups are cached as misses and rendered as placeholders.
type lookup struct {
	directory Directory
	catalog   Catalog
	log       *logger.Logger

	mu       sync.Mutex
	users    map[string]*model.UserProfile
	services map[string]*model.CatalogService
}

func (s *bookingService) newLookup() *lookup {
	return &lookup{
		directory: s.collaborators.Directory,
		catalog:   s.collaborators.Catalog,
		log:       s.log,
		users:     make(map[string]*model.UserProfile),
		services:  make(map[string]*model.CatalogService),
	}
}

// prefetch resolves every distinct id referenced by bookings concurrently.
func (l *lookup) prefetch(ctx context.Context, bookings []*model.Booking) {
	userIDs := make(map[string]struct{})
	serviceIDs := make(map[string]struct{})
	for _, b := range bookings {
		userIDs[b.ClientID] = struct{}{}
		userIDs[b.ProfessionalID] = struct{}{}
		serviceIDs[b.ServiceID] = struct{}{}
	}

	var wg sync.WaitGroup
	for id := range userIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			l.user(ctx, id)
		}(id)
	}
	for id := range serviceIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			l.service(ctx, id)
		}(id)
	}
	wg.Wait()
}

func (l *lookup) resolve(ctx context.Context, b *model.Booking) partyNames {
	l.prefetch(ctx, []*model.Booking{b})

	names := partyNames{client: UnknownUser, professional: UnknownUser, service: UnknownService}
	if u := l.cachedUser(b.ClientID); u != nil && u.Name != "" {
		names.client = u.Name
	}
	if u := l.cachedUser(b.ProfessionalID); u != nil && u.Name != "" {
		names.professional = u.Name
	}
	if svc := l.serviceInfo(b.ServiceID); svc != nil && svc.Name != "" {
		names.service = svc.Name
	}
	return names
}

func (l *lookup) user(ctx context.Context, id string) {
	l.mu.Lock()
	if _, done := l.users[id]; done {
		l.mu.Unlock()
		return
	}
	l.users[id] = nil
	l.mu.Unlock()

	if l.directory == nil || id == "" {
		return
	}
	profile, err := l.directory.GetUser(ctx, id)
	metrics.RecordCollaboratorCall("directory", err)
	if err != nil {
		l.log.Warn("Failed to resolve user", "user_id", id, "error", err)
		return
	}

	l.mu.Lock()
	l.users[id] = profile
	l.mu.Unlock()
}

func (l *lookup) service(ctx context.Context, id string) {
	l.mu.Lock()
	if _, done := l.services[id]; done {
		l.mu.Unlock()
		return
	}
	l.services[id] = nil
	l.mu.Unlock()

	if l.catalog == nil || id == "" {
		return
	}
	svc, err := l.catalog.GetService(ctx, id)
	metrics.RecordCollaboratorCall("catalog", err)
	if err != nil {
		l.log.Warn("Failed to resolve service", "service_id", id, "error", err)
		return
	}

	l.mu.Lock()
	l.services[id] = svc
	l.mu.Unlock()
}

func (l *lookup) cachedUser(id string) *model.UserProfile {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.users[id]
}

func (l *lookup) serviceInfo(id string) *model.CatalogService {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.services[id]
}
