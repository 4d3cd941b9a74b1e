package associacao

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/coopcata/plataforma/internal/lookup"
	"github.com/coopcata/plataforma/internal/user"
)

var (
	ErrNotFound  = errors.New("associação não encontrada")
	ErrCnpjEmUso = errors.New("já existe uma associação com o CNPJ cadastrado")
)

// RoleAssociacao é a role fixa atribuída a toda conta de associação.
// Nomes de role vindos do cliente são descartados no provisionamento.
const RoleAssociacao = "associacao"

// Associacao representa uma cooperativa de catadores. Cada associação é
// respaldada por exatamente uma conta de usuário.
type Associacao struct {
	ID           uuid.UUID     `json:"id"`
	CNPJ         string        `json:"cnpj"`
	Endereco     string        `json:"endereco"`
	Bairro       string        `json:"bairro"`
	UserID       uuid.UUID     `json:"user_id"`
	User         *user.Usuario `json:"user,omitempty"`
	CriadoEm     time.Time     `json:"criado_em"`
	AtualizadoEm time.Time     `json:"atualizado_em"`
}

// NovaAssociacao é o pedido de provisionamento de associação.
type NovaAssociacao struct {
	CNPJ     string         `json:"cnpj"`
	Endereco string         `json:"endereco"`
	Bairro   string         `json:"bairro"`
	User     user.NovaConta `json:"user"`
}

// AtualizaAssociacao aplica alteração parcial: campos vazios são mantidos.
type AtualizaAssociacao struct {
	CNPJ     string           `json:"cnpj"`
	Endereco string           `json:"endereco"`
	Bairro   string           `json:"bairro"`
	User     user.UpdateConta `json:"user"`
}

// CreateRecord são os campos persistidos após o provisionamento resolver
// conta e roles.
type CreateRecord struct {
	UserID   uuid.UUID
	CNPJ     string
	Endereco string
	Bairro   string
}

// UpdateRecord aplica alteração parcial no registro da associação.
type UpdateRecord struct {
	CNPJ     string
	Endereco string
	Bairro   string
}

// CatadorResumo é a projeção de catador devolvida na consulta por conta
// dona: omite a própria associação para evitar payload circular.
type CatadorResumo struct {
	ID       uuid.UUID      `json:"id"`
	CPF      string         `json:"cpf"`
	Endereco string         `json:"endereco"`
	Bairro   string         `json:"bairro"`
	User     *user.Usuario  `json:"user,omitempty"`
	Etnia    *lookup.Etnia  `json:"etnia,omitempty"`
	Genero   *lookup.Genero `json:"genero,omitempty"`
}
