package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/events"
	"github.com/hrdesk/helpdesk-service/internal/repository"
)

// nopTx satisfies persistence.TxRunner for tests; the fakes are already
// atomic enough.
type nopTx struct{}

func (nopTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memAccountRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*domain.Account
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{nextID: 1, items: map[int64]*domain.Account{}}
}

func (r *memAccountRepo) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account.ID = r.nextID
	r.nextID++
	account.CreatedAt = time.Now()
	cp := *account
	r.items[account.ID] = &cp
	return nil
}

func (r *memAccountRepo) Update(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[account.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *account
	r.items[account.ID] = &cp
	return nil
}

func (r *memAccountRepo) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *account
	return &cp, nil
}

func (r *memAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.items {
		if account.Email == email {
			cp := *account
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memAccountRepo) ListActiveByRole(_ context.Context, roleID int64) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Account
	for _, account := range r.items {
		if account.Active && account.RoleID != nil && *account.RoleID == roleID {
			out = append(out, *account)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memAccountRepo) ListByKind(_ context.Context, kind domain.RoleKind) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Account
	for _, account := range r.items {
		if account.RoleKind == kind {
			out = append(out, *account)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memTicketRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*domain.Ticket
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{nextID: 1, items: map[int64]*domain.Ticket{}}
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = r.nextID
	r.nextID++
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	cp := *ticket
	r.items[ticket.ID] = &cp
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	cp := *ticket
	r.items[ticket.ID] = &cp
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *ticket
	return &cp, nil
}

func (r *memTicketRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.items, id)
	return nil
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.items {
		if filter.RequesterID != nil && ticket.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.AgentID != nil && (ticket.AgentID == nil || *ticket.AgentID != *filter.AgentID) {
			continue
		}
		if len(filter.States) > 0 && !containsState(filter.States, ticket.State) {
			continue
		}
		out = append(out, *ticket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTicketRepo) ListByState(_ context.Context, state domain.TicketState) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.items {
		if ticket.State == state {
			out = append(out, *ticket)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memTicketRepo) CountByAgent(_ context.Context, agentID int64, states []domain.TicketState) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, ticket := range r.items {
		if ticket.AgentID != nil && *ticket.AgentID == agentID && containsState(states, ticket.State) {
			count++
		}
	}
	return count, nil
}

func (r *memTicketRepo) CountByAgentExcluding(_ context.Context, agentID int64, excluded domain.TicketState) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, ticket := range r.items {
		if ticket.AgentID != nil && *ticket.AgentID == agentID && ticket.State != excluded {
			count++
		}
	}
	return count, nil
}

func (r *memTicketRepo) OldestInState(_ context.Context, state domain.TicketState, categoryID int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var oldest *domain.Ticket
	for _, ticket := range r.items {
		if ticket.State != state || ticket.CategoryID == nil || *ticket.CategoryID != categoryID {
			continue
		}
		if oldest == nil || ticket.CreatedAt.Before(oldest.CreatedAt) {
			oldest = ticket
		}
	}
	if oldest == nil {
		return nil, nil
	}
	cp := *oldest
	return &cp, nil
}

type memCategoryRepo struct {
	mu     sync.Mutex
	nextID int64
	cats   map[int64]*domain.Category
	subs   map[int64]*domain.Subcategory
}

func newMemCategoryRepo() *memCategoryRepo {
	return &memCategoryRepo{nextID: 1, cats: map[int64]*domain.Category{}, subs: map[int64]*domain.Subcategory{}}
}

func (r *memCategoryRepo) Create(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	category.ID = r.nextID
	r.nextID++
	cp := *category
	r.cats[category.ID] = &cp
	return nil
}

func (r *memCategoryRepo) Update(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cats[category.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *category
	r.cats[category.ID] = &cp
	return nil
}

func (r *memCategoryRepo) GetByID(_ context.Context, id int64) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	category, ok := r.cats[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *category
	return &cp, nil
}

func (r *memCategoryRepo) List(_ context.Context, activeOnly bool) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Category
	for _, category := range r.cats {
		if activeOnly && !category.Active {
			continue
		}
		out = append(out, *category)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memCategoryRepo) CreateSubcategory(_ context.Context, sub *domain.Subcategory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub.ID = r.nextID
	r.nextID++
	cp := *sub
	r.subs[sub.ID] = &cp
	return nil
}

func (r *memCategoryRepo) GetSubcategoryByID(_ context.Context, id int64) (*domain.Subcategory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *sub
	return &cp, nil
}

func (r *memCategoryRepo) ListSubcategories(_ context.Context, categoryID int64) ([]domain.Subcategory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Subcategory
	for _, sub := range r.subs {
		if sub.CategoryID == categoryID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

type memAssignmentRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*domain.TicketAssignment
}

func newMemAssignmentRepo() *memAssignmentRepo {
	return &memAssignmentRepo{nextID: 1, items: map[int64]*domain.TicketAssignment{}}
}

func (r *memAssignmentRepo) Create(_ context.Context, assignment *domain.TicketAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.TicketID == assignment.TicketID && existing.State == domain.AssignmentStatePending {
			return pgx.ErrTooManyRows
		}
	}
	assignment.ID = r.nextID
	r.nextID++
	assignment.CreatedAt = time.Now()
	cp := *assignment
	r.items[assignment.ID] = &cp
	return nil
}

func (r *memAssignmentRepo) GetByID(_ context.Context, id int64) (*domain.TicketAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	assignment, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *assignment
	return &cp, nil
}

func (r *memAssignmentRepo) GetPendingForTicket(_ context.Context, ticketID int64) (*domain.TicketAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, assignment := range r.items {
		if assignment.TicketID == ticketID && assignment.State == domain.AssignmentStatePending {
			cp := *assignment
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memAssignmentRepo) ListPendingByDestination(_ context.Context, agentID int64) ([]domain.TicketAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketAssignment
	for _, assignment := range r.items {
		if assignment.DestinationAgentID == agentID && assignment.State == domain.AssignmentStatePending {
			out = append(out, *assignment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memAssignmentRepo) ListExpired(_ context.Context, now time.Time) ([]domain.TicketAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketAssignment
	for _, assignment := range r.items {
		if assignment.State == domain.AssignmentStatePending && now.After(assignment.Deadline) {
			out = append(out, *assignment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memAssignmentRepo) ResolvePending(_ context.Context, id int64, next domain.AssignmentState) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	assignment, ok := r.items[id]
	if !ok || assignment.State != domain.AssignmentStatePending {
		return false, nil
	}
	assignment.State = next
	assignment.UpdatedAt = time.Now()
	return true, nil
}

type memHistoryRepo struct {
	mu     sync.Mutex
	nextID int64
	items  []domain.TicketHistory
}

func newMemHistoryRepo() *memHistoryRepo {
	return &memHistoryRepo{nextID: 1}
}

func (r *memHistoryRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = r.nextID
	r.nextID++
	entry.CreatedAt = time.Now()
	r.items = append(r.items, *entry)
	return nil
}

func (r *memHistoryRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketHistory
	for _, entry := range r.items {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *memHistoryRepo) byAction(ticketID int64, action string) []domain.TicketHistory {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketHistory
	for _, entry := range r.items {
		if entry.TicketID == ticketID && entry.Action == action {
			out = append(out, entry)
		}
	}
	return out
}

type memChatRepo struct {
	mu           sync.Mutex
	nextID       int64
	rooms        map[int64]*domain.ChatRoom
	participants map[int64][]int64
}

func newMemChatRepo() *memChatRepo {
	return &memChatRepo{nextID: 1, rooms: map[int64]*domain.ChatRoom{}, participants: map[int64][]int64{}}
}

func (r *memChatRepo) EnsureRoom(_ context.Context, ticketID int64) (*domain.ChatRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, room := range r.rooms {
		if room.TicketID == ticketID {
			room.Active = true
			cp := *room
			return &cp, nil
		}
	}
	room := &domain.ChatRoom{ID: r.nextID, TicketID: ticketID, Active: true, CreatedAt: time.Now()}
	r.nextID++
	r.rooms[room.ID] = room
	cp := *room
	return &cp, nil
}

func (r *memChatRepo) GetByTicket(_ context.Context, ticketID int64) (*domain.ChatRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, room := range r.rooms {
		if room.TicketID == ticketID {
			cp := *room
			cp.Participants = append([]int64(nil), r.participants[room.ID]...)
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memChatRepo) ReplaceParticipants(_ context.Context, roomID int64, accountIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants[roomID] = append([]int64(nil), accountIDs...)
	return nil
}

func (r *memChatRepo) Deactivate(_ context.Context, roomID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return pgx.ErrNoRows
	}
	room.Active = false
	return nil
}

// recordingDispatcher captures published events in order.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, event := range d.events {
		if event.Type == t {
			out = append(out, event)
		}
	}
	return out
}

func containsState(states []domain.TicketState, state domain.TicketState) bool {
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}
