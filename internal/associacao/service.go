package associacao

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/coopcata/plataforma/internal/auth"
	"github.com/coopcata/plataforma/internal/role"
	"github.com/coopcata/plataforma/internal/user"
)

const (
	cacheKeyLista = "associacoes:lista"
	cacheTTLLista = 60 * time.Second
)

// Contas é a fatia do subsistema de usuários consumida pelo
// provisionamento de associações.
type Contas interface {
	RoleIDsByName(ctx context.Context, names []string) ([]uuid.UUID, error)
	EmailDisponivel(ctx context.Context, email string) error
	CreateTx(ctx context.Context, tx pgx.Tx, nome, email, senha string) (*user.Usuario, error)
	AddRolesTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, roleIDs []uuid.UUID) error
	Update(ctx context.Context, id uuid.UUID, input user.UpdateConta) error
	SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error
	DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// Roles cria definições de role quando a lookup indica ausência.
type Roles interface {
	Create(ctx context.Context, nome, descricao string, ativa bool) (*role.Role, error)
}

// Store é o armazenamento de registros de associação.
type Store interface {
	List(ctx context.Context) ([]Associacao, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Associacao, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Associacao, error)
	ExistsByCnpj(ctx context.Context, cnpj string) error
	CreateTx(ctx context.Context, tx pgx.Tx, input CreateRecord) (*Associacao, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateRecord) (*Associacao, error)
	DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// CatadorLister lista catadores de uma associação na projeção resumida.
type CatadorLister interface {
	ListResumoByAssociacao(ctx context.Context, associacaoID uuid.UUID) ([]CatadorResumo, error)
}

// TxRunner executa fn dentro de uma transação (db.WithTx em produção).
type TxRunner func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error

// Service orquestra o provisionamento e o ciclo de vida de associações.
type Service struct {
	store        Store
	contas       Contas
	roles        Roles
	catadores    CatadorLister
	cache        *redis.Client
	runTx        TxRunner
	senhaTamanho int
}

// NewService cria uma nova instância de Service.
func NewService(store Store, contas Contas, roles Roles, catadores CatadorLister, cache *redis.Client, runTx TxRunner, senhaTamanho int) *Service {
	if senhaTamanho <= 0 {
		senhaTamanho = 5
	}
	return &Service{
		store:        store,
		contas:       contas,
		roles:        roles,
		catadores:    catadores,
		cache:        cache,
		runTx:        runTx,
		senhaTamanho: senhaTamanho,
	}
}

// Create provisiona uma associação: garante a role fixa, aplica a senha
// default, valida CNPJ e e-mail e cria conta, vínculos de role e registro
// numa única transação. Devolve também a senha gerada (vazia quando o
// cliente informou a própria).
func (s *Service) Create(ctx context.Context, input NovaAssociacao) (*Associacao, string, error) {
	roleIDs, err := s.ensureRole(ctx)
	if err != nil {
		return nil, "", err
	}

	senha := input.User.Senha
	var senhaGerada string
	if strings.TrimSpace(senha) == "" {
		senha, err = auth.GerarSenha(s.senhaTamanho)
		if err != nil {
			return nil, "", err
		}
		senhaGerada = senha
	}

	// Pré-checagens consultivas: nenhuma mutação acontece se falharem.
	if err := s.store.ExistsByCnpj(ctx, input.CNPJ); err != nil {
		return nil, "", err
	}
	if err := s.contas.EmailDisponivel(ctx, input.User.Email); err != nil {
		return nil, "", err
	}

	var criada *Associacao
	err = s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		u, err := s.contas.CreateTx(ctx, tx, input.User.Nome, input.User.Email, senha)
		if err != nil {
			return err
		}

		if err := s.contas.AddRolesTx(ctx, tx, u.ID, roleIDs); err != nil {
			return err
		}

		a, err := s.store.CreateTx(ctx, tx, CreateRecord{
			UserID:   u.ID,
			CNPJ:     input.CNPJ,
			Endereco: input.Endereco,
			Bairro:   input.Bairro,
		})
		if err != nil {
			return err
		}

		a.User = u
		criada = a
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	s.invalidateLista(ctx)
	return criada, senhaGerada, nil
}

// ensureRole resolve o id da role fixa, criando-a apenas quando a lookup
// sinaliza ausência. Outras falhas de lookup propagam sem tentar criar.
// Duas primeiras chamadas concorrentes ainda podem criar roles duplicadas;
// o nome não carrega unique constraint.
func (s *Service) ensureRole(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := s.contas.RoleIDsByName(ctx, []string{RoleAssociacao})
	if err == nil {
		return ids, nil
	}
	if !errors.Is(err, user.ErrRoleNaoEncontrada) {
		return nil, err
	}

	criada, err := s.roles.Create(ctx, RoleAssociacao, "Usuário associação", true)
	if err != nil {
		return nil, err
	}
	return []uuid.UUID{criada.ID}, nil
}

// List devolve todas as associações, com cache curto em Redis.
func (s *Service) List(ctx context.Context) ([]Associacao, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKeyLista).Bytes(); err == nil {
			var associacoes []Associacao
			if json.Unmarshal(data, &associacoes) == nil {
				return associacoes, nil
			}
		}
	}

	associacoes, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(associacoes); err == nil {
			_ = s.cache.Set(ctx, cacheKeyLista, payload, cacheTTLLista).Err()
		}
	}

	return associacoes, nil
}

// GetByID busca associação pelo identificador.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Associacao, error) {
	return s.store.GetByID(ctx, id)
}

// GetByUserID busca a associação cuja conta dona é o usuário informado.
func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (*Associacao, error) {
	return s.store.GetByUserID(ctx, userID)
}

// Update aplica alteração parcial. CNPJ e e-mail só passam pela checagem
// de unicidade quando mudaram. Conta e registro são mutados em chamadas
// separadas, sem transação conjunta.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input AtualizaAssociacao) (*Associacao, error) {
	existente, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	novoCnpj := strings.TrimSpace(input.CNPJ)
	if novoCnpj != "" && novoCnpj != existente.CNPJ {
		if err := s.store.ExistsByCnpj(ctx, novoCnpj); err != nil {
			return nil, err
		}
	}

	novoEmail := strings.TrimSpace(input.User.Email)
	if novoEmail != "" && existente.User != nil && !strings.EqualFold(novoEmail, existente.User.Email) {
		if err := s.contas.EmailDisponivel(ctx, novoEmail); err != nil {
			return nil, err
		}
	}

	if err := s.contas.Update(ctx, existente.UserID, input.User); err != nil {
		return nil, err
	}

	atualizada, err := s.store.Update(ctx, id, UpdateRecord{
		CNPJ:     input.CNPJ,
		Endereco: input.Endereco,
		Bairro:   input.Bairro,
	})
	if err != nil {
		return nil, err
	}

	s.invalidateLista(ctx)
	return atualizada, nil
}

// Disable desativa a conta dona da associação (ativo = false). O registro
// da associação permanece intacto.
func (s *Service) Disable(ctx context.Context, id uuid.UUID) (*Associacao, error) {
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.contas.SetAtivo(ctx, a.UserID, false); err != nil {
		return nil, err
	}

	if a.User != nil {
		a.User.Ativo = false
	}

	s.invalidateLista(ctx)
	return a, nil
}

// Delete remove associação e conta dona numa única transação, nessa ordem.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.store.DeleteTx(ctx, tx, id); err != nil {
			return err
		}
		return s.contas.DeleteTx(ctx, tx, a.UserID)
	})
	if err != nil {
		return err
	}

	s.invalidateLista(ctx)
	return nil
}

// CatadoresDoUsuario resolve a associação dona da conta e lista seus
// catadores na projeção sem a associação repetida.
func (s *Service) CatadoresDoUsuario(ctx context.Context, userID uuid.UUID) ([]CatadorResumo, error) {
	a, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.catadores.ListResumoByAssociacao(ctx, a.ID)
}

func (s *Service) invalidateLista(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, cacheKeyLista).Err()
	}
}
