package catador

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/coopcata/plataforma/internal/associacao"
	"github.com/coopcata/plataforma/internal/lookup"
	"github.com/coopcata/plataforma/internal/user"
)

var (
	ErrNotFound = errors.New("catador não encontrado")
	ErrCpfEmUso = errors.New("já existe um catador com o CPF cadastrado")
)

// RoleCatador é a role fixa atribuída a toda conta de catador.
const RoleCatador = "catador"

// Catador representa um catador individual vinculado a exatamente uma
// associação e respaldado por exatamente uma conta de usuário.
type Catador struct {
	ID           uuid.UUID              `json:"id"`
	CPF          string                 `json:"cpf"`
	Endereco     string                 `json:"endereco"`
	Bairro       string                 `json:"bairro"`
	UserID       uuid.UUID              `json:"user_id"`
	AssociacaoID uuid.UUID              `json:"associacao_id"`
	User         *user.Usuario          `json:"user,omitempty"`
	Associacao   *associacao.Associacao `json:"associacao,omitempty"`
	Etnia        *lookup.Etnia          `json:"etnia,omitempty"`
	Genero       *lookup.Genero         `json:"genero,omitempty"`
	CriadoEm     time.Time              `json:"criado_em"`
	AtualizadoEm time.Time              `json:"atualizado_em"`
}

// NovoCatador é o pedido de provisionamento de catador.
type NovoCatador struct {
	CPF          string         `json:"cpf"`
	Endereco     string         `json:"endereco"`
	Bairro       string         `json:"bairro"`
	AssociacaoID uuid.UUID      `json:"associacao_id"`
	EtniaID      *uuid.UUID     `json:"etnia_id,omitempty"`
	GeneroID     *uuid.UUID     `json:"genero_id,omitempty"`
	User         user.NovaConta `json:"user"`
}

// AtualizaCatador aplica alteração parcial: campos vazios/nulos são mantidos.
type AtualizaCatador struct {
	CPF          string           `json:"cpf"`
	Endereco     string           `json:"endereco"`
	Bairro       string           `json:"bairro"`
	AssociacaoID *uuid.UUID       `json:"associacao_id,omitempty"`
	EtniaID      *uuid.UUID       `json:"etnia_id,omitempty"`
	GeneroID     *uuid.UUID       `json:"genero_id,omitempty"`
	User         user.UpdateConta `json:"user"`
}

// CreateRecord são os campos persistidos após o provisionamento resolver
// conta, roles e associação.
type CreateRecord struct {
	UserID       uuid.UUID
	AssociacaoID uuid.UUID
	CPF          string
	Endereco     string
	Bairro       string
	EtniaID      *uuid.UUID
	GeneroID     *uuid.UUID
}

// UpdateRecord aplica alteração parcial no registro do catador.
type UpdateRecord struct {
	CPF          string
	Endereco     string
	Bairro       string
	AssociacaoID *uuid.UUID
	EtniaID      *uuid.UUID
	GeneroID     *uuid.UUID
}
