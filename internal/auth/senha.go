package auth

import (
	"crypto/rand"
	"math/big"
)

const alfabetoSenha = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GerarSenha devolve uma senha alfanumérica aleatória com o tamanho pedido.
// É um default de conveniência para contas provisionadas, não um controle
// de segurança: o usuário deve trocar a senha no primeiro acesso.
func GerarSenha(tamanho int) (string, error) {
	if tamanho <= 0 {
		tamanho = 5
	}

	out := make([]byte, tamanho)
	max := big.NewInt(int64(len(alfabetoSenha)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alfabetoSenha[n.Int64()]
	}
	return string(out), nil
}
