package billing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/invoicely-api/internal/application/dto"
	"github.com/jhoicas/invoicely-api/internal/domain"
)

func TestClientCreate_EmailDuplicadoPorUsuario(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	_, err := e.clients.Create(ctx, "u1", dto.ClientRequest{Name: "Acme", Email: "Acme@Example.com"})
	require.NoError(t, err)

	_, err = e.clients.Create(ctx, "u1", dto.ClientRequest{Name: "Acme 2", Email: "acme@example.com"})
	assert.ErrorIs(t, err, domain.ErrDuplicateClient)

	_, err = e.clients.Create(ctx, "u2", dto.ClientRequest{Name: "Acme", Email: "acme@example.com"})
	assert.NoError(t, err, "otro usuario puede tener el mismo email")
}

func TestClientCreate_Validaciones(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	_, err := e.clients.Create(ctx, "u1", dto.ClientRequest{Email: "a@example.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.clients.Create(ctx, "u1", dto.ClientRequest{Name: "Acme", Email: "no-es-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.clients.Create(ctx, "u1", dto.ClientRequest{Name: "Acme", Email: "a@example.com", Logo: "no es url"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestClient_AccesoAjenoEsNotFound(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	c := e.client("u1", "acme@example.com", "")

	_, err := e.clients.Get(ctx, "u2", c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.clients.Update(ctx, "u2", c.ID, dto.ClientRequest{Name: "Hack", Email: "h@example.com"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, e.clients.Delete(ctx, "u2", c.ID), domain.ErrNotFound)

	list, err := e.clients.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestClientUpdate(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	c := e.client("u1", "acme@example.com", "")
	e.client("u1", "beta@example.com", "")

	out, err := e.clients.Update(ctx, "u1", c.ID, dto.ClientRequest{Name: "Acme SA", Email: "acme@example.com", Phone: "+1555"})
	require.NoError(t, err)
	assert.Equal(t, "Acme SA", out.Name)
	assert.Equal(t, "+1555", out.Phone)

	_, err = e.clients.Update(ctx, "u1", c.ID, dto.ClientRequest{Name: "Acme", Email: "beta@example.com"})
	assert.ErrorIs(t, err, domain.ErrDuplicateClient)
}
