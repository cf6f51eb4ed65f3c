package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

func validTicketInput() TicketCreateInput {
	return TicketCreateInput{
		Name:        "Ana",
		Email:       "ana@x.com",
		Category:    domain.TicketCategoryTechnical,
		Subject:     "Login fails",
		Description: "Cannot log in",
	}
}

func newTicketServiceForTest(t *testing.T) (*TicketService, *recordedEvents) {
	t.Helper()
	dispatcher := events.NewInMemoryDispatcher()
	rec := &recordedEvents{}
	subscribeAll(dispatcher, rec)
	svc := NewTicketService(TicketDependencies{
		TicketRepo: newFileTicketRepo(t),
		Dispatcher: dispatcher,
		Clock:      newStepClock().Now,
	})
	return svc, rec
}

func TestTicketService_CreateTicket(t *testing.T) {
	ctx := context.Background()
	svc, rec := newTicketServiceForTest(t)

	ticket, err := svc.CreateTicket(ctx, validTicketInput())
	require.NoError(t, err)

	assert.Equal(t, int64(1), ticket.ID)
	assert.Equal(t, "CHM-000001", ticket.Number)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Nil(t, ticket.Phone)
	require.Len(t, ticket.Messages, 1)
	assert.Equal(t, 1, ticket.Messages[0].ID)
	assert.Equal(t, "Cannot log in", ticket.Messages[0].Body)
	assert.Equal(t, "Ana", ticket.Messages[0].Author)
	assert.Equal(t, domain.MessageKindCustomer, ticket.Messages[0].Kind)
	assert.Equal(t, ticket.OpenedAt, ticket.UpdatedAt)
	assert.Equal(t, ticket.OpenedAt, ticket.Messages[0].SentAt)
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, rec.types())

	stored, err := svc.GetTicket(ctx, domain.TicketRef{ID: 1})
	require.NoError(t, err)
	assert.Equal(t, ticket, stored)
}

func TestTicketService_CreateTicketKeepsValidPriority(t *testing.T) {
	svc, _ := newTicketServiceForTest(t)
	input := validTicketInput()
	input.Priority = domain.TicketPriorityUrgent
	input.Phone = "+55 11 5555-0000"

	ticket, err := svc.CreateTicket(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityUrgent, ticket.Priority)
	require.NotNil(t, ticket.Phone)
	assert.Equal(t, "+55 11 5555-0000", *ticket.Phone)

	input.Priority = "whenever"
	ticket, err = svc.CreateTicket(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
}

func TestTicketService_CreateTicketTrimsPriority(t *testing.T) {
	svc, _ := newTicketServiceForTest(t)
	input := validTicketInput()
	input.Priority = " high "

	ticket, err := svc.CreateTicket(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
}

func TestTicketService_CreateTicketValidation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*TicketCreateInput)
		message string
		details map[string]any
	}{
		{
			name:    "missing fields",
			mutate:  func(in *TicketCreateInput) { in.Name = "  "; in.Subject = "" },
			message: "name, email, category, subject and description are required",
			details: map[string]any{"fields": []string{"name", "subject"}},
		},
		{
			name:    "missing field wins over bad email",
			mutate:  func(in *TicketCreateInput) { in.Email = "nope"; in.Description = "" },
			message: "name, email, category, subject and description are required",
			details: map[string]any{"fields": []string{"description"}},
		},
		{
			name:    "bad email",
			mutate:  func(in *TicketCreateInput) { in.Email = "ana@x" },
			message: "invalid email address",
			details: map[string]any{"field": "email"},
		},
		{
			name:    "bad email wins over bad category",
			mutate:  func(in *TicketCreateInput) { in.Email = "ana x@y.com"; in.Category = "billing" },
			message: "invalid email address",
			details: map[string]any{"field": "email"},
		},
		{
			name:    "unknown category",
			mutate:  func(in *TicketCreateInput) { in.Category = "billing" },
			message: "category must be one of: technical, financial, commercial, support, other",
			details: map[string]any{"field": "category"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &stubTicketRepo{}
			svc := NewTicketService(TicketDependencies{TicketRepo: repo})
			input := validTicketInput()
			tc.mutate(&input)

			_, err := svc.CreateTicket(context.Background(), input)
			require.Error(t, err)
			domainErr := apperrors.ToDomainError(err)
			assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
			assert.Equal(t, 400, domainErr.HTTPStatus)
			assert.Equal(t, tc.message, domainErr.Message)
			assert.Equal(t, tc.details, domainErr.Details)
			assert.Zero(t, repo.saves)
		})
	}
}

func TestTicketService_IDsIncrease(t *testing.T) {
	ctx := context.Background()
	repo := &stubTicketRepo{tickets: []domain.Ticket{
		{ID: 4, Number: domain.TicketNumber(4), Status: domain.TicketStatusOpen},
		{ID: 9, Number: domain.TicketNumber(9), Status: domain.TicketStatusClosed},
	}}
	svc := NewTicketService(TicketDependencies{TicketRepo: repo})

	first, err := svc.CreateTicket(ctx, validTicketInput())
	require.NoError(t, err)
	second, err := svc.CreateTicket(ctx, validTicketInput())
	require.NoError(t, err)

	assert.Equal(t, int64(10), first.ID)
	assert.Equal(t, "CHM-000010", first.Number)
	assert.Equal(t, int64(11), second.ID)
	assert.Len(t, repo.tickets, 4)
}

func TestTicketService_CreateTicketAfterBrokenRow(t *testing.T) {
	ctx := context.Background()
	blob, err := persistence.NewFileBlob(filepath.Join(t.TempDir(), "chamados.csv"))
	require.NoError(t, err)
	content := strings.Join(repository.TicketColumns, ",") + "\n" +
		"1,CHM-000001,Ana,a@x.com,,support,s,d,low,open,[],,\n" +
		"7,CHM-000007,Bro\"ken,b@x.com,,support,s,d,low,open,[],,\n" +
		"2,CHM-000002,Bia,b@x.com,,support,s,d,low,open,[],,\n"
	require.NoError(t, blob.Write(ctx, []byte(content)))

	svc := NewTicketService(TicketDependencies{TicketRepo: repository.NewCSVTicketRepository(blob, zap.NewNop(), nil)})

	all, err := svc.ListTickets(ctx, TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	created, err := svc.CreateTicket(ctx, validTicketInput())
	require.NoError(t, err)
	assert.Equal(t, int64(3), created.ID)

	all, err = svc.ListTickets(ctx, TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTicketService_ConcurrentCreatesGetUniqueIDs(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTicketServiceForTest(t)

	const n = 20
	var wg sync.WaitGroup
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := validTicketInput()
			input.Subject = fmt.Sprintf("subject %d", i)
			ticket, err := svc.CreateTicket(ctx, input)
			if assert.NoError(t, err) {
				ids <- ticket.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)

	all, err := svc.ListTickets(ctx, TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, all, n)
}

func TestTicketService_ListTicketsFilters(t *testing.T) {
	ctx := context.Background()
	repo := &stubTicketRepo{tickets: []domain.Ticket{
		{ID: 1, Email: "a@x.com", Status: domain.TicketStatusResolved, Category: domain.TicketCategoryTechnical, Priority: domain.TicketPriorityLow},
		{ID: 2, Email: "b@x.com", Status: domain.TicketStatusOpen, Category: domain.TicketCategoryTechnical, Priority: domain.TicketPriorityHigh},
		{ID: 3, Email: "a@x.com", Status: domain.TicketStatusResolved, Category: domain.TicketCategoryFinancial, Priority: domain.TicketPriorityHigh},
		{ID: 4, Email: "c@x.com", Status: domain.TicketStatusClosed, Category: domain.TicketCategoryOther, Priority: domain.TicketPriorityMedium},
		{ID: 5, Email: "b@x.com", Status: domain.TicketStatusResolved, Category: domain.TicketCategoryTechnical, Priority: domain.TicketPriorityHigh},
	}}
	svc := NewTicketService(TicketDependencies{TicketRepo: repo})

	ids := func(tickets []domain.Ticket) []int64 {
		out := []int64{}
		for _, t := range tickets {
			out = append(out, t.ID)
		}
		return out
	}

	resolved, err := svc.ListTickets(ctx, TicketFilter{Status: domain.TicketStatusResolved})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 5}, ids(resolved))

	combined, err := svc.ListTickets(ctx, TicketFilter{Status: domain.TicketStatusResolved, Category: domain.TicketCategoryTechnical, Priority: domain.TicketPriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, ids(combined))

	byEmail, err := svc.ListTickets(ctx, TicketFilter{Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(byEmail))

	none, err := svc.ListTickets(ctx, TicketFilter{Status: domain.TicketStatusAwaitingCustomer})
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := svc.ListTickets(ctx, TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestTicketService_GetTicketByNumberAndID(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTicketServiceForTest(t)
	created, err := svc.CreateTicket(ctx, validTicketInput())
	require.NoError(t, err)

	byNumber, err := svc.GetTicket(ctx, domain.ParseTicketRef("CHM-000001"))
	require.NoError(t, err)
	byID, err := svc.GetTicket(ctx, domain.ParseTicketRef("1"))
	require.NoError(t, err)
	again, err := svc.GetTicket(ctx, domain.ParseTicketRef("1"))
	require.NoError(t, err)

	assert.Equal(t, created, byNumber)
	assert.Equal(t, byID, again)

	_, err = svc.GetTicket(ctx, domain.ParseTicketRef("CHM-999999"))
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTicketService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	svc, rec := newTicketServiceForTest(t)
	created, err := svc.CreateTicket(ctx, validTicketInput())
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, domain.TicketRef{ID: created.ID}, domain.TicketStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, updated.Status)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, created.OpenedAt, updated.OpenedAt)

	// any enumerated status is accepted, including reopening
	reopened, err := svc.UpdateStatus(ctx, domain.TicketRef{Number: created.Number}, domain.TicketStatusOpen)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, reopened.Status)

	assert.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketStatusChanged,
	}, rec.types())
	assert.Equal(t, events.StatusChangedPayload{OldStatus: "closed", NewStatus: "open"}, rec.events[2].Payload)
}

func TestTicketService_UpdateStatusRejectsUnknownStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTicketServiceForTest(t)
	created, err := svc.CreateTicket(ctx, validTicketInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, domain.TicketRef{ID: created.ID}, "archived")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "open, in_progress, awaiting_customer, resolved, closed")

	stored, err := svc.GetTicket(ctx, domain.TicketRef{ID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, created, stored)
}

func TestTicketService_UpdateStatusUnknownTicket(t *testing.T) {
	ctx := context.Background()
	repo := &stubTicketRepo{tickets: []domain.Ticket{{ID: 1, Number: domain.TicketNumber(1), Status: domain.TicketStatusOpen}}}
	svc := NewTicketService(TicketDependencies{TicketRepo: repo})

	_, err := svc.UpdateStatus(ctx, domain.TicketRef{ID: 999}, domain.TicketStatusClosed)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Zero(t, repo.saves)
	assert.Equal(t, domain.TicketStatusOpen, repo.tickets[0].Status)
}

func TestTicketService_AddMessage(t *testing.T) {
	ctx := context.Background()
	opened := newStepClock().Now()
	repo := &stubTicketRepo{tickets: []domain.Ticket{{
		ID:     7,
		Number: domain.TicketNumber(7),
		Name:   "Ana",
		Email:  "ana@x.com",
		Status: domain.TicketStatusInProgress,
		Messages: []domain.TicketMessage{
			{ID: 1, Author: "Ana", AuthorEmail: "ana@x.com", Body: "help", Kind: domain.MessageKindCustomer, SentAt: opened},
			{ID: 2, Author: "Agent", AuthorEmail: "agent@desk.com", Body: "looking", Kind: domain.MessageKindAgent, SentAt: opened},
		},
		OpenedAt:  opened,
		UpdatedAt: opened,
	}}}
	dispatcher := events.NewInMemoryDispatcher()
	rec := &recordedEvents{}
	subscribeAll(dispatcher, rec)
	svc := NewTicketService(TicketDependencies{TicketRepo: repo, Dispatcher: dispatcher})

	msg, ticket, err := svc.AddMessage(ctx, domain.TicketRef{ID: 7}, MessageInput{Body: "  still broken "})
	require.NoError(t, err)

	assert.Equal(t, 3, msg.ID)
	assert.Equal(t, "still broken", msg.Body)
	assert.Equal(t, domain.MessageKindCustomer, msg.Kind)
	assert.Equal(t, "Ana", msg.Author)
	assert.Equal(t, "ana@x.com", msg.AuthorEmail)
	require.Len(t, ticket.Messages, 3)
	assert.Equal(t, *msg, ticket.Messages[2])
	assert.Equal(t, msg.SentAt, ticket.UpdatedAt)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	require.Len(t, repo.tickets[0].Messages, 3)

	reply, _, err := svc.AddMessage(ctx, domain.TicketRef{Number: "CHM-000007"}, MessageInput{
		Body: "fixed", Author: "Bia", AuthorEmail: "bia@desk.com", Kind: domain.MessageKindAgent,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, reply.ID)
	assert.Equal(t, "Bia", reply.Author)
	assert.Equal(t, domain.MessageKindAgent, reply.Kind)

	assert.Equal(t, []events.EventType{events.EventTicketMessageAdded, events.EventTicketMessageAdded}, rec.types())
}

func TestTicketService_AddMessageValidation(t *testing.T) {
	ctx := context.Background()
	repo := &stubTicketRepo{tickets: []domain.Ticket{{ID: 1, Number: domain.TicketNumber(1), Name: "Ana", Email: "ana@x.com"}}}
	svc := NewTicketService(TicketDependencies{TicketRepo: repo})

	_, _, err := svc.AddMessage(ctx, domain.TicketRef{ID: 1}, MessageInput{Body: "   "})
	assert.True(t, apperrors.IsValidation(err))

	_, _, err = svc.AddMessage(ctx, domain.TicketRef{ID: 1}, MessageInput{Body: "hi", Kind: "bot"})
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, map[string]any{"field": "tipo"}, apperrors.ToDomainError(err).Details)

	_, _, err = svc.AddMessage(ctx, domain.TicketRef{ID: 2}, MessageInput{Body: "hi"})
	assert.True(t, apperrors.IsNotFound(err))

	assert.Zero(t, repo.saves)
	assert.Empty(t, repo.tickets[0].Messages)
}

func TestTicketService_StoreFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("save failure is internal", func(t *testing.T) {
		svc := NewTicketService(TicketDependencies{TicketRepo: &stubTicketRepo{saveErr: errStore}})
		_, err := svc.CreateTicket(ctx, validTicketInput())
		require.Error(t, err)
		domainErr := apperrors.ToDomainError(err)
		assert.Equal(t, "INTERNAL_ERROR", domainErr.Code)
		assert.ErrorIs(t, err, errStore)
	})

	t.Run("load failure blocks mutation", func(t *testing.T) {
		repo := &stubTicketRepo{loadErr: errStore}
		svc := NewTicketService(TicketDependencies{TicketRepo: repo})
		_, err := svc.CreateTicket(ctx, validTicketInput())
		assert.Equal(t, 500, apperrors.ToDomainError(err).HTTPStatus)
		_, err = svc.UpdateStatus(ctx, domain.TicketRef{ID: 1}, domain.TicketStatusClosed)
		assert.Equal(t, 500, apperrors.ToDomainError(err).HTTPStatus)
		assert.Zero(t, repo.saves)
	})

	t.Run("load failure reads as empty", func(t *testing.T) {
		svc := NewTicketService(TicketDependencies{TicketRepo: &stubTicketRepo{loadErr: errStore}})
		tickets, err := svc.ListTickets(ctx, TicketFilter{})
		require.NoError(t, err)
		assert.Empty(t, tickets)
		_, err = svc.GetTicket(ctx, domain.TicketRef{ID: 1})
		assert.True(t, apperrors.IsNotFound(err))
	})
}
