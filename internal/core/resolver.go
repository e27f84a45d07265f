package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JonMunkholm/ledgersync/internal/metrics"
)

// CustomerKey builds the composite identity key for a customer:
// lower-cased trimmed name, "__", phone with all whitespace removed.
func CustomerKey(name, phone string) string {
	return normalizeName(name) + "__" + strings.Join(strings.Fields(phone), "")
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CustomerResolver maps (name, phone) pairs onto persisted customers for the
// duration of one import pass. Customers it creates become visible to every
// later Resolve call in the same pass.
//
// Not safe for concurrent use.
type CustomerResolver struct {
	store  Store
	newID  func() string
	now    func() time.Time
	logger *slog.Logger

	index map[string]Customer
	keys  []string // insertion order, for the name-only scan
}

// NewCustomerResolver builds a resolver over a known customer set.
func NewCustomerResolver(store Store, customers []Customer) *CustomerResolver {
	r := &CustomerResolver{
		store:  store,
		newID:  shortID,
		now:    time.Now,
		logger: slog.Default(),
		index:  make(map[string]Customer, len(customers)),
	}
	for _, c := range customers {
		r.Add(c)
	}
	return r
}

// LoadCustomerResolver builds a resolver over every customer currently in store.
func LoadCustomerResolver(ctx context.Context, store Store) (*CustomerResolver, error) {
	recs, err := store.QueryAll(ctx, KindCustomers)
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}
	customers := make([]Customer, 0, len(recs))
	for _, rec := range recs {
		if c, ok := rec.(Customer); ok {
			customers = append(customers, c)
		}
	}
	return NewCustomerResolver(store, customers), nil
}

// WithLogger sets the logger used for creation failures.
func (r *CustomerResolver) WithLogger(l *slog.Logger) *CustomerResolver {
	if l != nil {
		r.logger = l
	}
	return r
}

// Len returns the number of distinct keys in the index.
func (r *CustomerResolver) Len() int {
	return len(r.index)
}

// Add registers c under its own identity key. A later customer with the
// same key replaces the earlier one.
func (r *CustomerResolver) Add(c Customer) {
	r.put(CustomerKey(c.Name, c.Phone), c)
}

func (r *CustomerResolver) put(key string, c Customer) {
	if _, exists := r.index[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.index[key] = c
}

// Lookup finds a customer without creating one.
// Exact key first, then the first indexed customer with the same name.
func (r *CustomerResolver) Lookup(name, phone string) (Customer, bool) {
	if c, ok := r.index[CustomerKey(name, phone)]; ok {
		return c, true
	}

	want := normalizeName(name)
	if want == "" {
		return Customer{}, false
	}
	for _, key := range r.keys {
		c := r.index[key]
		if normalizeName(c.Name) == want {
			return c, true
		}
	}
	return Customer{}, false
}

// Resolve returns the customer for (name, phone), creating one through the
// Store when no indexed customer matches.
func (r *CustomerResolver) Resolve(ctx context.Context, name, phone string) (Customer, error) {
	if c, ok := r.Lookup(name, phone); ok {
		return c, nil
	}

	now := r.now()
	c := Customer{
		Name:         CoerceString(name, DefaultCustomerName),
		Phone:        strings.TrimSpace(phone),
		CustomerType: DefaultCustomerType,
		Status:       DefaultStatus,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if c.Phone == "" {
		c.Phone = PlaceholderPhoneTag + r.newID()
	}

	rec, err := r.store.Insert(ctx, KindCustomers, c)
	if err != nil {
		r.logger.Warn("customer create failed",
			"name", c.Name,
			"phone", c.Phone,
			"error", err,
		)
		return Customer{}, fmt.Errorf("create customer %q: %w", c.Name, err)
	}

	created, ok := rec.(Customer)
	if !ok || created.ID == "" {
		return Customer{}, fmt.Errorf("create customer %q: %w", c.Name, ErrUnresolvedCustomer)
	}

	metrics.CustomersCreated.Inc()

	// Index under the requested key too, so a blank phone resolves to the
	// placeholder customer on the next lookup.
	r.put(CustomerKey(name, phone), created)
	r.Add(created)
	return created, nil
}
