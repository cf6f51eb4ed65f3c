package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
)

var errStore = errors.New("store unavailable")

// stepClock hands out strictly increasing UTC instants.
type stepClock struct {
	mu   sync.Mutex
	next time.Time
}

func newStepClock() *stepClock {
	return &stepClock{next: time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(time.Second)
	return now
}

type stubTicketRepo struct {
	tickets []domain.Ticket
	loadErr error
	saveErr error
	saves   int
}

func (r *stubTicketRepo) LoadAll(context.Context) ([]domain.Ticket, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return append([]domain.Ticket(nil), r.tickets...), nil
}

func (r *stubTicketRepo) SaveAll(_ context.Context, tickets []domain.Ticket) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.tickets = append([]domain.Ticket(nil), tickets...)
	return nil
}

type stubComplaintRepo struct {
	complaints []domain.Complaint
	loadErr    error
	saveErr    error
}

func (r *stubComplaintRepo) LoadAll(context.Context) ([]domain.Complaint, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return append([]domain.Complaint(nil), r.complaints...), nil
}

func (r *stubComplaintRepo) SaveAll(_ context.Context, complaints []domain.Complaint) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.complaints = append([]domain.Complaint(nil), complaints...)
	return nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) handler(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func subscribeAll(d events.Dispatcher, rec *recordedEvents) {
	for _, et := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketMessageAdded,
		events.EventComplaintCreated,
		events.EventComplaintStatusChanged,
	} {
		d.Subscribe(et, rec.handler)
	}
}

func newFileTicketRepo(t *testing.T) repository.TicketRepository {
	t.Helper()
	blob, err := persistence.NewFileBlob(filepath.Join(t.TempDir(), "chamados.csv"))
	require.NoError(t, err)
	return repository.NewCSVTicketRepository(blob, zap.NewNop(), nil)
}

func newFileComplaintRepo(t *testing.T) repository.ComplaintRepository {
	t.Helper()
	blob, err := persistence.NewFileBlob(filepath.Join(t.TempDir(), "reclamacoes.csv"))
	require.NoError(t, err)
	return repository.NewCSVComplaintRepository(blob, zap.NewNop(), nil)
}
