package testutil

import (
	"fmt"
	"time"

	"github.com/almoxarifado/almox-backend/pkg/normalize"
)

// CategoryFixture represents test category data
type CategoryFixture struct {
	ID           int64
	Name         string
	OriginalName string
	Description  string
}

// SectorFixture represents test sector data
type SectorFixture struct {
	ID          int64
	Name        string
	Description string
}

// ItemFixture represents test item data
type ItemFixture struct {
	ID           int64
	Name         string
	OriginalName string
	Description  string
	Unit         string
	Quantity     int
	MinQuantity  int
	Brand        *string
	ExpiryDate   *time.Time
	CategoryID   int64
	IsActive     bool
	EntryDate    time.Time
}

// WithdrawalFixture represents test withdrawal data
type WithdrawalFixture struct {
	ID             int64
	RequesterID    int64
	SectorID       *int64
	Status         int
	Justification  string
	LocalRequester string
	RequestedAt    time.Time
	IsActive       bool
	Lines          map[int64]int // item ID to quantity
}

// AlertFixture represents test alert data
type AlertFixture struct {
	ID             int64
	Kind           int
	ItemID         int64
	Message        string
	CreatedAt      time.Time
	Viewed         bool
	SuppressFuture bool
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Category creates a category fixture with defaults
func (f *FixtureFactory) Category(opts ...func(*CategoryFixture)) CategoryFixture {
	seq := f.nextSeq()

	cat := CategoryFixture{
		ID:           int64(seq),
		Name:         normalize.Name(fmt.Sprintf("Categoria %d", seq)),
		OriginalName: fmt.Sprintf("Categoria %d", seq),
		Description:  "",
	}

	for _, opt := range opts {
		opt(&cat)
	}

	return cat
}

// Sector creates a sector fixture with defaults
func (f *FixtureFactory) Sector(opts ...func(*SectorFixture)) SectorFixture {
	seq := f.nextSeq()

	sector := SectorFixture{
		ID:   int64(seq),
		Name: fmt.Sprintf("Setor %d", seq),
	}

	for _, opt := range opts {
		opt(&sector)
	}

	return sector
}

// Item creates an item fixture with defaults
func (f *FixtureFactory) Item(opts ...func(*ItemFixture)) ItemFixture {
	seq := f.nextSeq()
	original := fmt.Sprintf("Item de Teste %d", seq)

	item := ItemFixture{
		ID:           int64(seq),
		Name:         normalize.Name(original),
		OriginalName: original,
		Unit:         "unidade",
		Quantity:     100,
		MinQuantity:  10,
		CategoryID:   1,
		IsActive:     true,
		EntryDate:    time.Now(),
	}

	for _, opt := range opts {
		opt(&item)
	}

	return item
}

// WithItemName sets the item's raw name and derives the canonical form
func WithItemName(name string) func(*ItemFixture) {
	return func(i *ItemFixture) {
		i.OriginalName = name
		i.Name = normalize.Name(name)
	}
}

// WithQuantity sets the item stock quantity
func WithQuantity(qty int) func(*ItemFixture) {
	return func(i *ItemFixture) {
		i.Quantity = qty
	}
}

// WithMinQuantity sets the item minimum stock level
func WithMinQuantity(min int) func(*ItemFixture) {
	return func(i *ItemFixture) {
		i.MinQuantity = min
	}
}

// WithBrand sets the item brand
func WithBrand(brand string) func(*ItemFixture) {
	return func(i *ItemFixture) {
		i.Brand = &brand
	}
}

// WithExpiryDate sets the item expiry date
func WithExpiryDate(d time.Time) func(*ItemFixture) {
	return func(i *ItemFixture) {
		i.ExpiryDate = &d
	}
}

// WithCategoryID sets the item category
func WithCategoryID(id int64) func(*ItemFixture) {
	return func(i *ItemFixture) {
		i.CategoryID = id
	}
}

// Withdrawal creates a withdrawal fixture with defaults
func (f *FixtureFactory) Withdrawal(opts ...func(*WithdrawalFixture)) WithdrawalFixture {
	seq := f.nextSeq()

	w := WithdrawalFixture{
		ID:          int64(seq),
		RequesterID: 1,
		Status:      1,
		RequestedAt: time.Now(),
		IsActive:    true,
		Lines:       map[int64]int{},
	}

	for _, opt := range opts {
		opt(&w)
	}

	return w
}

// WithWithdrawalStatus sets the withdrawal status
func WithWithdrawalStatus(status int) func(*WithdrawalFixture) {
	return func(w *WithdrawalFixture) {
		w.Status = status
	}
}

// WithLine adds an item line to the withdrawal
func WithLine(itemID int64, qty int) func(*WithdrawalFixture) {
	return func(w *WithdrawalFixture) {
		w.Lines[itemID] = qty
	}
}

// Alert creates an alert fixture with defaults
func (f *FixtureFactory) Alert(opts ...func(*AlertFixture)) AlertFixture {
	seq := f.nextSeq()

	a := AlertFixture{
		ID:        int64(seq),
		Kind:      1,
		ItemID:    1,
		Message:   fmt.Sprintf("Alerta de teste %d", seq),
		CreatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(&a)
	}

	return a
}

// WithAlertKind sets the alert kind
func WithAlertKind(kind int) func(*AlertFixture) {
	return func(a *AlertFixture) {
		a.Kind = kind
	}
}

// WithViewed marks the alert as viewed
func WithViewed() func(*AlertFixture) {
	return func(a *AlertFixture) {
		a.Viewed = true
	}
}

// WithSuppressFuture marks the alert as suppressing future occurrences
func WithSuppressFuture() func(*AlertFixture) {
	return func(a *AlertFixture) {
		a.SuppressFuture = true
	}
}
