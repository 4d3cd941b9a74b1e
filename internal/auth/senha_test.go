package auth

import (
	"strings"
	"testing"
)

func TestGerarSenhaTamanho(t *testing.T) {
	senha, err := GerarSenha(8)
	if err != nil {
		t.Fatalf("GerarSenha: %v", err)
	}
	if len(senha) != 8 {
		t.Fatalf("esperado tamanho 8, obtido %d", len(senha))
	}
}

func TestGerarSenhaTamanhoDefault(t *testing.T) {
	senha, err := GerarSenha(0)
	if err != nil {
		t.Fatalf("GerarSenha: %v", err)
	}
	if len(senha) != 5 {
		t.Fatalf("esperado tamanho default 5, obtido %d", len(senha))
	}
}

func TestGerarSenhaAlfabeto(t *testing.T) {
	senha, err := GerarSenha(64)
	if err != nil {
		t.Fatalf("GerarSenha: %v", err)
	}
	for _, r := range senha {
		if !strings.ContainsRune(alfabetoSenha, r) {
			t.Fatalf("caractere %q fora do alfabeto", r)
		}
	}
}
