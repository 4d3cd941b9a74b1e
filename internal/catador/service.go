package catador

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/coopcata/plataforma/internal/associacao"
	"github.com/coopcata/plataforma/internal/auth"
	"github.com/coopcata/plataforma/internal/mail"
	"github.com/coopcata/plataforma/internal/role"
	"github.com/coopcata/plataforma/internal/user"
)

const (
	cacheKeyLista = "catadores:lista"
	cacheTTLLista = 60 * time.Second

	assuntoBoasVindas = "Conta criada com sucesso"
	mailTimeout       = 10 * time.Second
)

// Contas é a fatia do subsistema de usuários consumida pelo
// provisionamento de catadores.
type Contas interface {
	RoleIDsByName(ctx context.Context, names []string) ([]uuid.UUID, error)
	EmailDisponivel(ctx context.Context, email string) error
	CreateTx(ctx context.Context, tx pgx.Tx, nome, email, senha string) (*user.Usuario, error)
	AddRolesTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, roleIDs []uuid.UUID) error
	Update(ctx context.Context, id uuid.UUID, input user.UpdateConta) error
	DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// Roles cria definições de role quando a lookup indica ausência.
type Roles interface {
	Create(ctx context.Context, nome, descricao string, ativa bool) (*role.Role, error)
}

// Associacoes valida a associação referenciada no provisionamento.
type Associacoes interface {
	GetByID(ctx context.Context, id uuid.UUID) (*associacao.Associacao, error)
}

// Store é o armazenamento de registros de catador.
type Store interface {
	List(ctx context.Context) ([]Catador, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Catador, error)
	ExistsByCpf(ctx context.Context, cpf string) error
	CreateTx(ctx context.Context, tx pgx.Tx, input CreateRecord) (*Catador, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateRecord) (*Catador, error)
	DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// TxRunner executa fn dentro de uma transação (db.WithTx em produção).
type TxRunner func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error

// Service orquestra o provisionamento e o ciclo de vida de catadores.
type Service struct {
	store        Store
	contas       Contas
	roles        Roles
	associacoes  Associacoes
	mailer       mail.Mailer
	cache        *redis.Client
	runTx        TxRunner
	senhaTamanho int
}

// NewService cria uma nova instância de Service. mailer pode ser nil:
// nesse caso nenhum e-mail de boas-vindas é enviado.
func NewService(store Store, contas Contas, roles Roles, associacoes Associacoes, mailer mail.Mailer, cache *redis.Client, runTx TxRunner, senhaTamanho int) *Service {
	if senhaTamanho <= 0 {
		senhaTamanho = 5
	}
	return &Service{
		store:        store,
		contas:       contas,
		roles:        roles,
		associacoes:  associacoes,
		mailer:       mailer,
		cache:        cache,
		runTx:        runTx,
		senhaTamanho: senhaTamanho,
	}
}

// Create provisiona um catador: garante a role fixa, aplica a senha
// default, valida associação, CPF e e-mail e cria conta, vínculos de role
// e registro numa única transação. O e-mail de boas-vindas com a senha é
// disparado em melhor esforço depois do commit.
func (s *Service) Create(ctx context.Context, input NovoCatador) (*Catador, string, error) {
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

	// A associação referenciada precisa existir antes de qualquer mutação.
	assoc, err := s.associacoes.GetByID(ctx, input.AssociacaoID)
	if err != nil {
		return nil, "", err
	}

	if err := s.store.ExistsByCpf(ctx, input.CPF); err != nil {
		return nil, "", err
	}
	if err := s.contas.EmailDisponivel(ctx, input.User.Email); err != nil {
		return nil, "", err
	}

	var criado *Catador
	err = s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		u, err := s.contas.CreateTx(ctx, tx, input.User.Nome, input.User.Email, senha)
		if err != nil {
			return err
		}

		if err := s.contas.AddRolesTx(ctx, tx, u.ID, roleIDs); err != nil {
			return err
		}

		c, err := s.store.CreateTx(ctx, tx, CreateRecord{
			UserID:       u.ID,
			AssociacaoID: assoc.ID,
			CPF:          input.CPF,
			Endereco:     input.Endereco,
			Bairro:       input.Bairro,
			EtniaID:      input.EtniaID,
			GeneroID:     input.GeneroID,
		})
		if err != nil {
			return err
		}

		c.User = u
		c.Associacao = assoc
		criado = c
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	s.invalidateLista(ctx)
	s.enviarBoasVindas(criado.User.Email, senha)

	return criado, senhaGerada, nil
}

// ensureRole resolve o id da role fixa, criando-a apenas quando a lookup
// sinaliza ausência. Outras falhas de lookup propagam sem tentar criar.
func (s *Service) ensureRole(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := s.contas.RoleIDsByName(ctx, []string{RoleCatador})
	if err == nil {
		return ids, nil
	}
	if !errors.Is(err, user.ErrRoleNaoEncontrada) {
		return nil, err
	}

	criada, err := s.roles.Create(ctx, RoleCatador, "Usuário catador", true)
	if err != nil {
		return nil, err
	}
	return []uuid.UUID{criada.ID}, nil
}

// enviarBoasVindas dispara o e-mail com a senha em uma goroutine própria.
// A entrega não participa do resultado do provisionamento: falha só gera log.
func (s *Service) enviarBoasVindas(email, senha string) {
	if s.mailer == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()

		corpo := fmt.Sprintf("Conta criada com sucesso! Sua senha para login é %s. Para trocar de senha, faça login na plataforma, vá em perfil e troque sua senha!", senha)
		if err := s.mailer.Send(ctx, email, assuntoBoasVindas, corpo); err != nil {
			log.Warn().Err(err).Str("email", email).Msg("falha ao enviar e-mail de boas-vindas")
		}
	}()
}

// List devolve todos os catadores, com cache curto em Redis.
func (s *Service) List(ctx context.Context) ([]Catador, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKeyLista).Bytes(); err == nil {
			var catadores []Catador
			if json.Unmarshal(data, &catadores) == nil {
				return catadores, nil
			}
		}
	}

	catadores, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(catadores); err == nil {
			_ = s.cache.Set(ctx, cacheKeyLista, payload, cacheTTLLista).Err()
		}
	}

	return catadores, nil
}

// GetByID busca catador pelo identificador.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Catador, error) {
	return s.store.GetByID(ctx, id)
}

// Update aplica alteração parcial. CPF e e-mail só passam pela checagem de
// unicidade quando mudaram; associação nova precisa existir. Conta e
// registro são mutados em chamadas separadas, sem transação conjunta.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input AtualizaCatador) (*Catador, error) {
	existente, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	novoCpf := strings.TrimSpace(input.CPF)
	if novoCpf != "" && novoCpf != existente.CPF {
		if err := s.store.ExistsByCpf(ctx, novoCpf); err != nil {
			return nil, err
		}
	}

	novoEmail := strings.TrimSpace(input.User.Email)
	if novoEmail != "" && existente.User != nil && !strings.EqualFold(novoEmail, existente.User.Email) {
		if err := s.contas.EmailDisponivel(ctx, novoEmail); err != nil {
			return nil, err
		}
	}

	if input.AssociacaoID != nil && *input.AssociacaoID != existente.AssociacaoID {
		if _, err := s.associacoes.GetByID(ctx, *input.AssociacaoID); err != nil {
			return nil, err
		}
	}

	if err := s.contas.Update(ctx, existente.UserID, input.User); err != nil {
		return nil, err
	}

	atualizado, err := s.store.Update(ctx, id, UpdateRecord{
		CPF:          input.CPF,
		Endereco:     input.Endereco,
		Bairro:       input.Bairro,
		AssociacaoID: input.AssociacaoID,
		EtniaID:      input.EtniaID,
		GeneroID:     input.GeneroID,
	})
	if err != nil {
		return nil, err
	}

	s.invalidateLista(ctx)
	return atualizado, nil
}

// Delete remove catador e conta dona numa única transação, nessa ordem.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.store.DeleteTx(ctx, tx, id); err != nil {
			return err
		}
		return s.contas.DeleteTx(ctx, tx, c.UserID)
	})
	if err != nil {
		return err
	}

	s.invalidateLista(ctx)
	return nil
}

func (s *Service) invalidateLista(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, cacheKeyLista).Err()
	}
}
