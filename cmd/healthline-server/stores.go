package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthline/healthline/internal/config"
	"github.com/healthline/healthline/internal/domain/account"
	"github.com/healthline/healthline/internal/domain/clinical"
	"github.com/healthline/healthline/internal/domain/conversation"
	"github.com/healthline/healthline/internal/domain/identity"
	"github.com/healthline/healthline/internal/domain/medication"
	"github.com/healthline/healthline/internal/domain/scheduling"
	"github.com/healthline/healthline/internal/platform/db"
	"github.com/healthline/healthline/internal/platform/memstore"
)

// backend is the set of repositories behind one STORE_DRIVER.
type backend struct {
	pool *pgxpool.Pool // nil for the memory driver
	tx   db.Transactor

	patients     identity.PatientRepository
	carers       identity.CarerRepository
	doctors      identity.DoctorRepository
	conditions   clinical.ConditionRepository
	medications  medication.ScheduleRepository
	appointments scheduling.AppointmentRepository
	referrals    scheduling.ReferralRepository
	users        account.UserRepository
	access       account.AccessRepository

	conversations map[string]conversation.Store // by persona key
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.StoreDriver == "memory" {
		return newMemoryBackend(), nil
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, err
	}
	b, err := newPostgresBackend(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

func newPostgresBackend(pool *pgxpool.Pool) (*backend, error) {
	b := &backend{
		pool:          pool,
		tx:            db.NewTransactor(pool),
		patients:      identity.NewPatientRepo(pool),
		carers:        identity.NewCarerRepo(pool),
		doctors:       identity.NewDoctorRepo(pool),
		conditions:    clinical.NewConditionRepo(pool),
		medications:   medication.NewScheduleRepo(pool),
		appointments:  scheduling.NewAppointmentRepo(pool),
		referrals:     scheduling.NewReferralRepo(pool),
		users:         account.NewUserRepo(pool),
		access:        account.NewAccessRepo(pool),
		conversations: map[string]conversation.Store{},
	}
	for _, p := range []conversation.Persona{conversation.Concierge, conversation.Doctor} {
		store, err := conversation.NewPGStore(pool, p)
		if err != nil {
			return nil, fmt.Errorf("conversation store %s: %w", p.Key, err)
		}
		b.conversations[p.Key] = store
	}
	return b, nil
}

func newMemoryBackend() *backend {
	s := memstore.New()
	return &backend{
		tx:           s,
		patients:     identity.NewPatientMemRepo(s),
		carers:       identity.NewCarerMemRepo(s),
		doctors:      identity.NewDoctorMemRepo(s),
		conditions:   clinical.NewConditionMemRepo(s),
		medications:  medication.NewScheduleMemRepo(s),
		appointments: scheduling.NewAppointmentMemRepo(s),
		referrals:    scheduling.NewReferralMemRepo(s),
		users:        account.NewUserMemRepo(s),
		access:       account.NewAccessMemRepo(s),
		conversations: map[string]conversation.Store{
			conversation.Concierge.Key: conversation.NewMemStore(),
			conversation.Doctor.Key:    conversation.NewMemStore(),
		},
	}
}

func (b *backend) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
}

// pinger returns nil for the memory driver so that /health/db reports the
// store without pool stats.
func (b *backend) pinger() db.Pinger {
	if b.pool == nil {
		return nil
	}
	return b.pool
}

func (b *backend) accountRepos() account.Repos {
	return account.Repos{
		Users:    b.users,
		Access:   b.access,
		Patients: b.patients,
		Doctors:  b.doctors,
		Carers:   b.carers,
	}
}
