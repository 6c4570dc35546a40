package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/consultacep/cep-api/internal/models"
	"github.com/consultacep/cep-api/internal/utils"
	"github.com/consultacep/cep-api/pkg/viacep"
)

// Source labels for resolved records.
const (
	SourceDB     = "db"
	SourceViaCEP = "viacep"
)

// CepStore is the persistence surface the service depends on. It is
// satisfied by repository.CepRepository.
type CepStore interface {
	GetByCEP(ctx context.Context, cep string) (*models.CEP, error)
	GetByUF(ctx context.Context, uf string) ([]models.CEP, error)
	GetByUFPaged(ctx context.Context, uf string, page, pageSize int) ([]models.CEP, error)
	CountByUF(ctx context.Context, uf string) (int, error)
	Insert(ctx context.Context, cep *models.CEP) (bool, error)
	Update(ctx context.Context, cep *models.CEP) (bool, error)
	Delete(ctx context.Context, id int) (bool, error)
}

// RemoteLookup resolves codes that are not in the database. It is satisfied
// by viacep.Client.
type RemoteLookup interface {
	Lookup(ctx context.Context, code string) viacep.Result
}

// CepService orchestrates the DB-first, ViaCEP-fallback resolution flow. It
// holds no state of its own; every call is a self-contained request/response
// cycle.
type CepService struct {
	store  CepStore
	remote RemoteLookup
}

// NewCepService constructs a CepService.
func NewCepService(store CepStore, remote RemoteLookup) *CepService {
	return &CepService{store: store, remote: remote}
}

// ExistsInDB reports whether a record for the code is persisted.
func (s *CepService) ExistsInDB(ctx context.Context, cep string) (bool, error) {
	existing, err := s.store.GetByCEP(ctx, cep)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

// Resolve looks up a CEP, database first. A DB hit is authoritative; only on
// a miss does the ViaCEP fallback run, and its result is never persisted
// automatically. A confirmed upstream miss and an upstream failure both come
// back as (nil, "", nil): callers cannot tell a confirmed absence from an
// outage, matching the original behavior. Malformed upstream data is the one
// outcome surfaced as an error.
func (s *CepService) Resolve(ctx context.Context, cep string) (*models.CEP, string, error) {
	fromDB, err := s.store.GetByCEP(ctx, cep)
	if err != nil {
		return nil, "", err
	}
	if fromDB != nil {
		log.Info().Str("cep", cep).Msg("[CEP SERVICE] resolved from database")
		return fromDB, SourceDB, nil
	}

	log.Info().Str("cep", cep).Msg("[CEP SERVICE] not in database, querying ViaCEP")
	res := s.remote.Lookup(ctx, cep)
	switch res.Outcome {
	case viacep.OutcomeFound:
		return addressToCEP(res.Address), SourceViaCEP, nil
	case viacep.OutcomeMalformed:
		return nil, "", fmt.Errorf("%w: %v", utils.ErrUpstreamMalformed, res.Err)
	case viacep.OutcomeFailed:
		// Collapsed into absence on purpose; the distinction stays visible
		// in the logs.
		log.Warn().Err(res.Err).Str("cep", cep).Msg("[CEP SERVICE] ViaCEP lookup failed")
		return nil, "", nil
	default:
		log.Info().Str("cep", cep).Msg("[CEP SERVICE] CEP not found")
		return nil, "", nil
	}
}

// Add persists a new record unless one already exists for the same code.
// The existence lookup fault propagates to the caller; insert faults are the
// one class of error converted into a structured failure result instead.
func (s *CepService) Add(ctx context.Context, cep *models.CEP) (*models.QueryResult, error) {
	existing, err := s.store.GetByCEP(ctx, cep.CepNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Info().Str("cep", cep.CepNumber).Msg("[CEP SERVICE] already registered, skipping insert")
		return &models.QueryResult{Exists: true, Data: existing, Source: SourceDB}, nil
	}

	inserted, err := s.store.Insert(ctx, cep)
	if err != nil {
		log.Error().Err(err).Str("cep", cep.CepNumber).Msg("[CEP SERVICE] insert failed")
		return &models.QueryResult{Errors: []string{"error registering the CEP"}}, nil
	}
	if !inserted {
		return &models.QueryResult{Errors: []string{"failed to insert the CEP into the database"}}, nil
	}

	log.Info().Str("cep", cep.CepNumber).Msg("[CEP SERVICE] CEP registered")
	return &models.QueryResult{Success: true, Data: cep}, nil
}

// GetByUF returns every record for a federative unit, never nil.
func (s *CepService) GetByUF(ctx context.Context, uf string) ([]models.CEP, error) {
	ceps, err := s.store.GetByUF(ctx, uf)
	if err != nil {
		return nil, err
	}
	if ceps == nil {
		ceps = []models.CEP{}
	}
	return ceps, nil
}

// GetByUFPaged returns one page of records plus the total count for the
// federative unit. The page and the count are two independent queries, so
// the pair can diverge under concurrent writes; that read is accepted as
// non-atomic.
func (s *CepService) GetByUFPaged(ctx context.Context, uf string, page, pageSize int) ([]models.CEP, int, error) {
	ceps, err := s.store.GetByUFPaged(ctx, uf, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountByUF(ctx, uf)
	if err != nil {
		return nil, 0, err
	}
	if ceps == nil {
		ceps = []models.CEP{}
	}
	return ceps, total, nil
}

// Update rewrites a record by id. Pass-through to the store.
func (s *CepService) Update(ctx context.Context, cep *models.CEP) (bool, error) {
	log.Info().Int("id", cep.ID).Msg("[CEP SERVICE] updating CEP")
	return s.store.Update(ctx, cep)
}

// Remove deletes a record by id. Pass-through to the store.
func (s *CepService) Remove(ctx context.Context, id int) (bool, error) {
	log.Info().Int("id", id).Msg("[CEP SERVICE] removing CEP")
	return s.store.Delete(ctx, id)
}

// addressToCEP maps a normalized ViaCEP record onto the storage model. ID
// stays zero: the record was not persisted.
func addressToCEP(addr *viacep.Address) *models.CEP {
	return &models.CEP{
		CepNumber:   addr.CepNumber,
		Logradouro:  addr.Logradouro,
		Complemento: addr.Complemento,
		Bairro:      addr.Bairro,
		Localidade:  addr.Localidade,
		UF:          addr.UF,
		IBGE:        addr.IBGE,
		GIA:         addr.GIA,
	}
}
