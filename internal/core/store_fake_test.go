package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// fakeStore is an in-memory Store that assigns ids and enforces the
// invoice to customer foreign key the way the database does.
type fakeStore struct {
	mu      sync.Mutex
	nextID  int
	records map[EntityKind][]Record

	insertLog []EntityKind
	deleteLog []EntityKind

	failInsert func(kind EntityKind, rec Record) error
	failDelete func(kind EntityKind, id string) error
	failQuery  map[EntityKind]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[EntityKind][]Record)}
}

func (s *fakeStore) QueryAll(_ context.Context, kind EntityKind) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failQuery[kind]; err != nil {
		return nil, err
	}
	out := make([]Record, len(s.records[kind]))
	copy(out, s.records[kind])
	return out, nil
}

func (s *fakeStore) Insert(_ context.Context, kind EntityKind, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.insertLog = append(s.insertLog, kind)
	if s.failInsert != nil {
		if err := s.failInsert(kind, rec); err != nil {
			return nil, err
		}
	}

	s.nextID++
	id := fmt.Sprintf("%s-%d", kind, s.nextID)

	switch r := rec.(type) {
	case Product:
		r.ID = id
		rec = r
	case Customer:
		r.ID = id
		rec = r
	case Invoice:
		if !s.hasLocked(KindCustomers, r.CustomerID) {
			return nil, errors.New("insert or update on table \"invoices\" violates foreign key constraint")
		}
		r.ID = id
		rec = r
	case Bill:
		r.ID = id
		rec = r
	default:
		return nil, fmt.Errorf("unexpected record %T", rec)
	}

	s.records[kind] = append(s.records[kind], rec)
	return rec, nil
}

func (s *fakeStore) Delete(_ context.Context, kind EntityKind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteLog = append(s.deleteLog, kind)
	if s.failDelete != nil {
		if err := s.failDelete(kind, id); err != nil {
			return err
		}
	}

	if kind == KindCustomers {
		for _, rec := range s.records[KindInvoices] {
			if rec.(Invoice).CustomerID == id {
				return errors.New("delete on table \"customers\" violates foreign key constraint")
			}
		}
	}

	recs := s.records[kind]
	for i, rec := range recs {
		if rec.RecordID() == id {
			s.records[kind] = append(recs[:i:i], recs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s %s not found", kind, id)
}

func (s *fakeStore) hasLocked(kind EntityKind, id string) bool {
	for _, rec := range s.records[kind] {
		if rec.RecordID() == id {
			return true
		}
	}
	return false
}

func (s *fakeStore) count(kind EntityKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records[kind])
}

func (s *fakeStore) customers() []Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Customer, 0, len(s.records[KindCustomers]))
	for _, rec := range s.records[KindCustomers] {
		out = append(out, rec.(Customer))
	}
	return out
}

func (s *fakeStore) invoices() []Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Invoice, 0, len(s.records[KindInvoices]))
	for _, rec := range s.records[KindInvoices] {
		out = append(out, rec.(Invoice))
	}
	return out
}

func (s *fakeStore) bills() []Bill {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Bill, 0, len(s.records[KindBills]))
	for _, rec := range s.records[KindBills] {
		out = append(out, rec.(Bill))
	}
	return out
}

// seed inserts records directly, bypassing failure hooks and the logs.
func (s *fakeStore) seed(kind EntityKind, rec Record) Record {
	hook := s.failInsert
	s.failInsert = nil
	persisted, err := s.Insert(context.Background(), kind, rec)
	s.failInsert = hook

	s.mu.Lock()
	s.insertLog = nil
	s.mu.Unlock()
	if err != nil {
		panic(err)
	}
	return persisted
}
