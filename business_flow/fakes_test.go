// Package businessflow contains the core business logic and use cases for the ship ledger workflows
package businessflow

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/araw/ship-ledger/models"
	"github.com/araw/ship-ledger/utils"
)

// fakeUserRepo is an in-memory AdminUserRepository keyed by email
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[string]*models.AdminUser
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.AdminUser)}
}

func (r *fakeUserRepo) addUser(email, passwordHash string) *models.AdminUser {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user := &models.AdminUser{
		ID:           r.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    utils.UTCNow(),
		UpdatedAt:    utils.UTCNow(),
	}
	r.users[email] = user
	return user
}

func (r *fakeUserRepo) ByID(ctx context.Context, id uint) (*models.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) ByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[email]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) Save(ctx context.Context, entity *models.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entity.ID == 0 {
		r.nextID++
		entity.ID = r.nextID
	}
	copied := *entity
	r.users[entity.Email] = &copied
	return nil
}

func (r *fakeUserRepo) SetOTP(ctx context.Context, userID uint, code string, issuedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.ID == userID {
			user.OTP = &code
			user.OTPCreatedAt = &issuedAt
			user.UpdatedAt = utils.UTCNow()
			return nil
		}
	}
	return nil
}

func (r *fakeUserRepo) ClearOTP(ctx context.Context, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.ID == userID {
			user.OTP = nil
			user.OTPCreatedAt = nil
			user.UpdatedAt = utils.UTCNow()
			return nil
		}
	}
	return nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, userID uint, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.ID == userID {
			user.PasswordHash = passwordHash
			user.OTP = nil
			user.OTPCreatedAt = nil
			user.UpdatedAt = utils.UTCNow()
			return nil
		}
	}
	return nil
}

// fakeAuditRepo records audit rows in memory
type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) ByID(ctx context.Context, id uint) (*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) Save(ctx context.Context, entity *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entity.ID == 0 {
		entity.ID = uint(len(r.logs) + 1)
	}
	copied := *entity
	r.logs = append(r.logs, &copied)
	return nil
}

func (r *fakeAuditRepo) ByFilter(ctx context.Context, filter models.AuditLogFilter, limit, offset int) ([]*models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.AuditLog, len(r.logs))
	copy(out, r.logs)
	return out, nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]string, 0, len(r.logs))
	for _, entry := range r.logs {
		actions = append(actions, entry.Action)
	}
	return actions
}

// fakeTransactionRepo is an in-memory TransactionRepository. Field access
// goes through closures so one implementation serves all three entry types.
type fakeTransactionRepo[T any] struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*T

	id    func(*T) uint
	setID func(*T, uint)
	date  func(*T) string
	ship  func(*T) string
}

func newFakeLoadingRepo() *fakeTransactionRepo[models.LoadingTransaction] {
	return &fakeTransactionRepo[models.LoadingTransaction]{
		rows:  make(map[uint]*models.LoadingTransaction),
		id:    func(e *models.LoadingTransaction) uint { return e.ID },
		setID: func(e *models.LoadingTransaction, id uint) { e.ID = id },
		date:  func(e *models.LoadingTransaction) string { return e.Date },
		ship:  func(e *models.LoadingTransaction) string { return e.ShipName },
	}
}

func newFakeDischargeRepo() *fakeTransactionRepo[models.DischargeTransaction] {
	return &fakeTransactionRepo[models.DischargeTransaction]{
		rows:  make(map[uint]*models.DischargeTransaction),
		id:    func(e *models.DischargeTransaction) uint { return e.ID },
		setID: func(e *models.DischargeTransaction, id uint) { e.ID = id },
		date:  func(e *models.DischargeTransaction) string { return e.Date },
		ship:  func(e *models.DischargeTransaction) string { return e.ShipName },
	}
}

func newFakeExpenseRepo() *fakeTransactionRepo[models.ExpenseTransaction] {
	return &fakeTransactionRepo[models.ExpenseTransaction]{
		rows:  make(map[uint]*models.ExpenseTransaction),
		id:    func(e *models.ExpenseTransaction) uint { return e.ID },
		setID: func(e *models.ExpenseTransaction, id uint) { e.ID = id },
		date:  func(e *models.ExpenseTransaction) string { return e.Date },
		ship:  func(e *models.ExpenseTransaction) string { return e.ShipName },
	}
}

func (r *fakeTransactionRepo[T]) ByID(ctx context.Context, id uint) (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (r *fakeTransactionRepo[T]) Save(ctx context.Context, entity *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.id(entity) == 0 {
		r.nextID++
		r.setID(entity, r.nextID)
	}
	copied := *entity
	r.rows[r.id(entity)] = &copied
	return nil
}

func (r *fakeTransactionRepo[T]) ByFilter(ctx context.Context, filter models.TransactionFilter) ([]*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*T
	for _, row := range r.rows {
		if filter.ShipName != nil && r.ship(row) != *filter.ShipName {
			continue
		}
		if filter.DateFrom != nil && r.date(row) < *filter.DateFrom {
			continue
		}
		if filter.DateTo != nil && r.date(row) > *filter.DateTo {
			continue
		}
		copied := *row
		out = append(out, &copied)
	}

	sort.Slice(out, func(i, j int) bool {
		if r.date(out[i]) != r.date(out[j]) {
			return r.date(out[i]) > r.date(out[j])
		}
		return r.id(out[i]) > r.id(out[j])
	})
	return out, nil
}

func (r *fakeTransactionRepo[T]) DeleteByID(ctx context.Context, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return false, nil
	}
	delete(r.rows, id)
	return true, nil
}

func (r *fakeTransactionRepo[T]) DistinctShipNames(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{})
	for _, row := range r.rows {
		seen[r.ship(row)] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *fakeTransactionRepo[T]) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}
