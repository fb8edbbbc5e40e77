package reminder

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/kalendar/internal/model"
	"github.com/hitoshi/kalendar/internal/repository"
)

// memRepo はReminderRepositoryのインメモリ実装。
// 参加者はリマインダーIDからユーザーIDへの辺集合として保持する。
type memRepo struct {
	mu        sync.Mutex
	userIDs   map[string]string // username -> id
	usernames map[string]string // id -> username
	reminders map[string]model.Reminder
	edges     map[string]map[string]struct{}

	err      error // 設定されている場合、全操作がこのエラーを返す
	mutated  int
	findHook func(id string) // FindByID直後に呼ばれる
}

func newMemRepo(usernames ...string) *memRepo {
	m := &memRepo{
		userIDs:   make(map[string]string),
		usernames: make(map[string]string),
		reminders: make(map[string]model.Reminder),
		edges:     make(map[string]map[string]struct{}),
	}
	for _, name := range usernames {
		id := "uid-" + name
		m.userIDs[name] = id
		m.usernames[id] = name
	}
	return m
}

func (m *memRepo) caller(username string) model.Caller {
	return model.Caller{UserID: m.userIDs[username], Username: username}
}

func (m *memRepo) FindByID(ctx context.Context, id string) (*model.Reminder, error) {
	m.mu.Lock()
	if m.err != nil {
		m.mu.Unlock()
		return nil, m.err
	}
	r, ok := m.reminders[id]
	var out *model.Reminder
	if ok {
		out = m.hydrate(r)
	}
	hook := m.findHook
	m.mu.Unlock()

	if hook != nil {
		hook(id)
	}
	return out, nil
}

func (m *memRepo) ListByDate(ctx context.Context, date time.Time) ([]*model.Reminder, error) {
	return m.list(func(r model.Reminder) bool { return r.Date.Equal(date) })
}

func (m *memRepo) ListByDateForUser(ctx context.Context, date time.Time, userID string) ([]*model.Reminder, error) {
	return m.list(func(r model.Reminder) bool {
		_, ok := m.edges[r.ID][userID]
		return ok && r.Date.Equal(date)
	})
}

func (m *memRepo) ListByParticipant(ctx context.Context, userID string) ([]*model.Reminder, error) {
	return m.list(func(r model.Reminder) bool {
		_, ok := m.edges[r.ID][userID]
		return ok
	})
}

func (m *memRepo) CreateWithParticipants(ctx context.Context, reminder *model.Reminder, usernames []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.mutated++
	stored := *reminder
	stored.Participants = nil
	m.reminders[reminder.ID] = stored
	m.edges[reminder.ID] = m.resolve(usernames)
	reminder.Participants = m.hydrate(stored).Participants
	return nil
}

func (m *memRepo) UpdateWithParticipants(ctx context.Context, reminder *model.Reminder, usernames []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.reminders[reminder.ID]; !ok {
		return repository.ErrNotFound
	}
	m.mutated++
	stored := *reminder
	stored.Participants = nil
	m.reminders[reminder.ID] = stored
	m.edges[reminder.ID] = m.resolve(usernames)
	reminder.Participants = m.hydrate(stored).Participants
	return nil
}

func (m *memRepo) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.reminders[id]; !ok {
		return repository.ErrNotFound
	}
	m.mutated++
	delete(m.reminders, id)
	delete(m.edges, id)
	return nil
}

func (m *memRepo) RemoveParticipant(ctx context.Context, reminderID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.edges[reminderID][userID]; !ok {
		return repository.ErrNotFound
	}
	m.mutated++
	delete(m.edges[reminderID], userID)
	return nil
}

// edgeCount は全リマインダーの参加者辺の総数を返す。
func (m *memRepo) edgeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, set := range m.edges {
		n += len(set)
	}
	return n
}

func (m *memRepo) resolve(usernames []string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, name := range usernames {
		if id, ok := m.userIDs[name]; ok {
			set[id] = struct{}{}
		}
	}
	return set
}

func (m *memRepo) hydrate(r model.Reminder) *model.Reminder {
	out := r
	out.Participants = nil
	for id := range m.edges[r.ID] {
		out.Participants = append(out.Participants, model.Participant{UserID: id, Username: m.usernames[id]})
	}
	sort.Slice(out.Participants, func(i, j int) bool {
		return out.Participants[i].Username < out.Participants[j].Username
	})
	return &out
}

func (m *memRepo) list(match func(model.Reminder) bool) ([]*model.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*model.Reminder
	for _, r := range m.reminders {
		if match(r) {
			out = append(out, m.hydrate(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

// less はPostgresReminderRepoのORDER BYと同じ並び順を表す。
func less(a, b *model.Reminder) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if a.AllDay != b.AllDay {
		return a.AllDay
	}
	switch {
	case a.Time == nil && b.Time != nil:
		return true
	case a.Time != nil && b.Time == nil:
		return false
	case a.Time != nil && b.Time != nil && *a.Time != *b.Time:
		return timeOfDayBefore(*a.Time, *b.Time)
	}
	return a.Title < b.Title
}

func timeOfDayBefore(a, b model.TimeOfDay) bool {
	if a.Hour != b.Hour {
		return a.Hour < b.Hour
	}
	if a.Minute != b.Minute {
		return a.Minute < b.Minute
	}
	return a.Second < b.Second
}

var _ repository.ReminderRepository = (*memRepo)(nil)
