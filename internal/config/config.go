package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port            int
	DBDSN           string
	RedisURL        string
	AllowOrigins    []string
	MailWebhookURL  string
	MailFrom        string
	SenhaTamanho    int
	RateLimitPublic RateLimitConfig
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obrigatório")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	allowOrigins := strings.Split(getEnv("ALLOW_ORIGINS", ""), ",")
	cfg.AllowOrigins = nil
	for _, origin := range allowOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	// Sem webhook configurado o envio de e-mail fica desativado.
	cfg.MailWebhookURL = strings.TrimSpace(getEnv("MAIL_WEBHOOK_URL", ""))
	cfg.MailFrom = strings.TrimSpace(getEnv("MAIL_FROM", "plataforma@coopcata.org.br"))

	senhaTamanho, err := strconv.Atoi(getEnv("SENHA_GERADA_TAMANHO", "5"))
	if err != nil || senhaTamanho <= 0 {
		return nil, errors.New("SENHA_GERADA_TAMANHO inválido")
	}
	cfg.SenhaTamanho = senhaTamanho

	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_PUBLIC_RPS", "10"), 64)
	if err != nil || rps <= 0 {
		return nil, errors.New("RATE_LIMIT_PUBLIC_RPS inválido")
	}
	burst, err := strconv.Atoi(getEnv("RATE_LIMIT_PUBLIC_BURST", "20"))
	if err != nil || burst <= 0 {
		return nil, errors.New("RATE_LIMIT_PUBLIC_BURST inválido")
	}
	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: rps, Burst: burst}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}
