package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("usuário não encontrado")
	ErrEmailEmUso        = errors.New("já existe um usuário com o e-mail cadastrado")
	ErrRoleNaoEncontrada = errors.New("role não encontrada")
)

// Usuario representa a conta de acesso que respalda associações e catadores.
type Usuario struct {
	ID           uuid.UUID `json:"id"`
	Nome         string    `json:"nome"`
	Email        string    `json:"email"`
	SenhaHash    string    `json:"-"`
	Ativo        bool      `json:"ativo"`
	CriadoEm     time.Time `json:"criado_em"`
	AtualizadoEm time.Time `json:"atualizado_em"`
}

// NovaConta carrega os dados de conta enviados nos pedidos de
// provisionamento das entidades de domínio.
type NovaConta struct {
	Nome  string `json:"nome"`
	Email string `json:"email"`
	// Senha é opcional: ausente, o fluxo gera uma senha alfanumérica.
	Senha string `json:"senha,omitempty"`
}

// CreateInput contém os campos persistidos na criação de conta.
type CreateInput struct {
	Nome      string
	Email     string
	SenhaHash string
	Ativo     bool
}

// UpdateInput aplica alteração parcial: campos vazios são mantidos.
type UpdateInput struct {
	Nome      string
	Email     string
	SenhaHash string
}
