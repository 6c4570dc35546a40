package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consultacep/cep-api/internal/models"
	"github.com/consultacep/cep-api/internal/utils"
	"github.com/consultacep/cep-api/pkg/viacep"
)

// fakeStore is an in-memory CepStore.
type fakeStore struct {
	records     map[string]*models.CEP // keyed by cep
	nextID      int
	getErr      error
	insertErr   error
	insertCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*models.CEP), nextID: 1}
}

func (f *fakeStore) GetByCEP(_ context.Context, cep string) (*models.CEP, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if rec, ok := f.records[cep]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) byUF(uf string) []models.CEP {
	var out []models.CEP
	for _, rec := range f.records {
		if rec.UF == uf {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeStore) GetByUF(_ context.Context, uf string) ([]models.CEP, error) {
	return f.byUF(uf), nil
}

func (f *fakeStore) GetByUFPaged(_ context.Context, uf string, page, pageSize int) ([]models.CEP, error) {
	all := f.byUF(uf)
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (f *fakeStore) CountByUF(_ context.Context, uf string) (int, error) {
	return len(f.byUF(uf)), nil
}

func (f *fakeStore) Insert(_ context.Context, cep *models.CEP) (bool, error) {
	f.insertCalls++
	if f.insertErr != nil {
		return false, f.insertErr
	}
	cep.ID = f.nextID
	f.nextID++
	cp := *cep
	f.records[cep.CepNumber] = &cp
	return true, nil
}

func (f *fakeStore) Update(_ context.Context, cep *models.CEP) (bool, error) {
	for _, rec := range f.records {
		if rec.ID == cep.ID {
			delete(f.records, rec.CepNumber)
			cp := *cep
			f.records[cep.CepNumber] = &cp
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Delete(_ context.Context, id int) (bool, error) {
	for key, rec := range f.records {
		if rec.ID == id {
			delete(f.records, key)
			return true, nil
		}
	}
	return false, nil
}

// fakeRemote returns a scripted lookup result.
type fakeRemote struct {
	result viacep.Result
	calls  int
}

func (f *fakeRemote) Lookup(_ context.Context, _ string) viacep.Result {
	f.calls++
	return f.result
}

func TestResolvePrefersDatabase(t *testing.T) {
	store := newFakeStore()
	_, err := store.Insert(context.Background(), &models.CEP{CepNumber: "01310100", Logradouro: "Avenida Paulista", UF: "SP"})
	require.NoError(t, err)

	remote := &fakeRemote{result: viacep.Result{Outcome: viacep.OutcomeFound, Address: &viacep.Address{CepNumber: "01310100", Logradouro: "Other Street"}}}
	svc := NewCepService(store, remote)

	rec, source, err := svc.Resolve(context.Background(), "01310100")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, SourceDB, source)
	assert.Equal(t, "Avenida Paulista", rec.Logradouro)
	assert.Equal(t, 0, remote.calls, "remote must not be consulted on a DB hit")
}

func TestResolveFallsBackToViaCEP(t *testing.T) {
	store := newFakeStore()
	remote := &fakeRemote{result: viacep.Result{
		Outcome: viacep.OutcomeFound,
		Address: &viacep.Address{
			CepNumber:  "01310100",
			Logradouro: "Avenida Paulista",
			UF:         "SP",
			IBGE:       3550308,
		},
	}}
	svc := NewCepService(store, remote)

	rec, source, err := svc.Resolve(context.Background(), "01310100")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, SourceViaCEP, source)
	assert.Equal(t, "01310100", rec.CepNumber)
	assert.Equal(t, "Avenida Paulista", rec.Logradouro)
	assert.Equal(t, "SP", rec.UF)
	assert.Equal(t, 3550308, rec.IBGE)
	assert.Zero(t, rec.ID, "remote records are not persisted")
	assert.Equal(t, 0, store.insertCalls, "resolve never persists automatically")
}

func TestResolveCollapsesMissAndFailure(t *testing.T) {
	tests := []struct {
		name   string
		result viacep.Result
	}{
		{"confirmed absence", viacep.Result{Outcome: viacep.OutcomeNotFound}},
		{"transport failure", viacep.Result{Outcome: viacep.OutcomeFailed, Err: errors.New("timeout")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewCepService(newFakeStore(), &fakeRemote{result: tt.result})
			rec, source, err := svc.Resolve(context.Background(), "99999999")
			require.NoError(t, err)
			assert.Nil(t, rec)
			assert.Empty(t, source)
		})
	}
}

func TestResolveSurfacesMalformedUpstream(t *testing.T) {
	remote := &fakeRemote{result: viacep.Result{Outcome: viacep.OutcomeMalformed, Err: errors.New("non-numeric ibge")}}
	svc := NewCepService(newFakeStore(), remote)

	rec, _, err := svc.Resolve(context.Background(), "01310100")
	assert.Nil(t, rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrUpstreamMalformed)
}

func TestResolvePropagatesStoreFault(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection reset")
	svc := NewCepService(store, &fakeRemote{})

	_, _, err := svc.Resolve(context.Background(), "01310100")
	assert.Error(t, err)
}

func TestAddThenResolveComesFromDB(t *testing.T) {
	store := newFakeStore()
	remote := &fakeRemote{result: viacep.Result{Outcome: viacep.OutcomeNotFound}}
	svc := NewCepService(store, remote)

	result, err := svc.Add(context.Background(), &models.CEP{CepNumber: "99999999", UF: "SP"})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotNil(t, result.Data)
	assert.Equal(t, "99999999", result.Data.CepNumber)

	rec, source, err := svc.Resolve(context.Background(), "99999999")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, SourceDB, source)
	assert.Equal(t, 0, remote.calls)
}

func TestAddTwiceReportsExists(t *testing.T) {
	store := newFakeStore()
	svc := NewCepService(store, &fakeRemote{})
	ctx := context.Background()

	first, err := svc.Add(ctx, &models.CEP{CepNumber: "99999999", UF: "SP", Logradouro: "Rua Um"})
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := svc.Add(ctx, &models.CEP{CepNumber: "99999999", UF: "SP", Logradouro: "Rua Dois"})
	require.NoError(t, err)
	assert.True(t, second.Exists)
	assert.False(t, second.Success)
	require.NotNil(t, second.Data)
	assert.Equal(t, first.Data.ID, second.Data.ID)
	assert.Equal(t, "Rua Um", second.Data.Logradouro, "exists result carries the stored record")

	count, err := store.CountByUF(ctx, "SP")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "no second row may be created")
}

func TestAddConvertsInsertFaultToFailureResult(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("disk full")
	svc := NewCepService(store, &fakeRemote{})

	result, err := svc.Add(context.Background(), &models.CEP{CepNumber: "12345678"})
	require.NoError(t, err, "insert faults are converted, not propagated")
	assert.False(t, result.Success)
	assert.False(t, result.Exists)
	require.NotEmpty(t, result.Errors)
}

func TestAddPropagatesLookupFault(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection reset")
	svc := NewCepService(store, &fakeRemote{})

	_, err := svc.Add(context.Background(), &models.CEP{CepNumber: "12345678"})
	assert.Error(t, err)
}

func TestExistsInDB(t *testing.T) {
	store := newFakeStore()
	svc := NewCepService(store, &fakeRemote{})
	ctx := context.Background()

	exists, err := svc.ExistsInDB(ctx, "01310100")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Insert(ctx, &models.CEP{CepNumber: "01310100"})
	require.NoError(t, err)

	exists, err = svc.ExistsInDB(ctx, "01310100")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGetByUFNormalizesEmpty(t *testing.T) {
	svc := NewCepService(newFakeStore(), &fakeRemote{})

	ceps, err := svc.GetByUF(context.Background(), "SP")
	require.NoError(t, err)
	assert.NotNil(t, ceps)
	assert.Empty(t, ceps)

	paged, total, err := svc.GetByUFPaged(context.Background(), "SP", 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, paged)
	assert.Empty(t, paged)
	assert.Zero(t, total)
}

func TestGetByUFPagedCoversFullListing(t *testing.T) {
	store := newFakeStore()
	svc := NewCepService(store, &fakeRemote{})
	ctx := context.Background()

	for i := 0; i < 23; i++ {
		_, err := store.Insert(ctx, &models.CEP{CepNumber: fmt.Sprintf("010%05d", i), UF: "SP"})
		require.NoError(t, err)
	}
	_, err := store.Insert(ctx, &models.CEP{CepNumber: "20040020", UF: "RJ"})
	require.NoError(t, err)

	full, err := svc.GetByUF(ctx, "SP")
	require.NoError(t, err)
	require.Len(t, full, 23)

	const pageSize = 10
	seen := make(map[string]bool)
	var collected []models.CEP
	for page := 1; ; page++ {
		items, total, err := svc.GetByUFPaged(ctx, "SP", page, pageSize)
		require.NoError(t, err)
		assert.Equal(t, 23, total)
		if len(items) == 0 {
			break
		}
		for _, item := range items {
			require.False(t, seen[item.CepNumber], "no record may appear on two pages")
			seen[item.CepNumber] = true
		}
		collected = append(collected, items...)
	}

	assert.Equal(t, full, collected, "concatenated pages must reproduce the full listing")

	list := models.NewPaginatedList(collected, 23, 1, pageSize)
	assert.Equal(t, 3, list.TotalPages)
}

func TestUpdateAndRemovePassThrough(t *testing.T) {
	store := newFakeStore()
	svc := NewCepService(store, &fakeRemote{})
	ctx := context.Background()

	result, err := svc.Add(ctx, &models.CEP{CepNumber: "01310100", UF: "SP"})
	require.NoError(t, err)
	id := result.Data.ID

	updated, err := svc.Update(ctx, &models.CEP{ID: id, CepNumber: "01310100", UF: "SP", Bairro: "Bela Vista"})
	require.NoError(t, err)
	assert.True(t, updated)

	removed, err := svc.Remove(ctx, id)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.Remove(ctx, id)
	require.NoError(t, err)
	assert.False(t, removed, "removing a missing id affects zero rows")
}
