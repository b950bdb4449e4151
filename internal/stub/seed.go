package stub

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/matthewbaird/metaform/internal/meta"
)

// Seed loads a small demo dataset: regions and users first, then the
// records that reference them. Idempotent — a store that already has
// dealers is left alone.
func Seed(ctx context.Context, store Store, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	existing, err := store.List(ctx, "dealer", ListOptions{})
	if err != nil {
		return fmt.Errorf("seed check: %w", err)
	}
	if len(existing) > 0 {
		log.Info("store already seeded, skipping", zap.Int("dealers", len(existing)))
		return nil
	}

	ref := func(rec meta.Record) meta.Record {
		return meta.Record{"id": rec["id"], "name": rec["name"]}
	}

	create := func(entity string, rec meta.Record) (meta.Record, error) {
		out, err := store.Create(ctx, entity, rec)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", entity, err)
		}
		return out, nil
	}

	west, err := create("region", meta.Record{"name": "West", "code": "W"})
	if err != nil {
		return err
	}
	east, err := create("region", meta.Record{"name": "East", "code": "E"})
	if err != nil {
		return err
	}
	if _, err := create("region", meta.Record{"name": "Central", "code": "C"}); err != nil {
		return err
	}

	ada, err := create("user", meta.Record{"name": "Ada Lovelace", "email": "ada@example.com", "role": "Admin", "active": true})
	if err != nil {
		return err
	}
	grace, err := create("user", meta.Record{"name": "Grace Hopper", "email": "grace@example.com", "role": "Manager", "active": true})
	if err != nil {
		return err
	}

	acme, err := create("dealer", meta.Record{
		"name": "Acme Motors", "email": "sales@acme.example", "status": "Active",
		"region": ref(west), "active": true, "joined_on": "2019-04-12",
	})
	if err != nil {
		return err
	}
	bolt, err := create("dealer", meta.Record{
		"name": "Bolt Cycles", "email": "info@bolt.example", "status": "Pending",
		"region": ref(east), "active": true, "joined_on": "2023-11-02",
	})
	if err != nil {
		return err
	}

	tasks := []meta.Record{
		{"title": "Renew franchise agreement", "status": "Open", "priority": "High",
			"assignee": ref(ada), "dealer": ref(acme), "dealer_id": acme["id"], "completed": false},
		{"title": "Quarterly audit", "status": "In Progress", "priority": "Medium",
			"assignee": ref(grace), "dealer": ref(acme), "dealer_id": acme["id"], "completed": false},
		{"title": "Onboarding paperwork", "status": "Done", "priority": "Low",
			"assignee": ref(ada), "dealer": ref(bolt), "dealer_id": bolt["id"], "completed": true},
	}
	for _, t := range tasks {
		if _, err := create("task", t); err != nil {
			return err
		}
	}

	subs := []meta.Record{
		{"plan": "Gold", "dealer": ref(acme), "dealer_id": acme["id"], "fee": 199.0, "seats": 25.0, "auto_renew": true},
		{"plan": "Basic", "dealer": ref(bolt), "dealer_id": bolt["id"], "fee": 29.0, "seats": 3.0, "auto_renew": false},
	}
	for _, sub := range subs {
		if _, err := create("subscription", sub); err != nil {
			return err
		}
	}

	if _, err := create("donation", meta.Record{
		"donor": ref(acme), "dealer_id": acme["id"], "amount": 2500.0, "currency": "USD",
		"campaign": "Community Fund", "donated_at": "2026-03-01T10:00:00Z",
	}); err != nil {
		return err
	}

	if _, err := create("meeting", meta.Record{
		"subject": "Regional kickoff", "scheduled_at": "2026-09-15T09:00:00Z",
		"location": "Denver", "organizer": ref(grace),
	}); err != nil {
		return err
	}

	if _, err := create("event", meta.Record{
		"title": "Annual dealer summit", "starts_at": "2026-10-20T08:00:00Z",
		"venue": "Chicago", "capacity": 400.0, "organizer": ref(ada),
	}); err != nil {
		return err
	}

	log.Info("seeded demo data")
	return nil
}
