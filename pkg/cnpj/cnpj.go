// Package cnpj normaliza y valida el CNPJ (Cadastro Nacional da Pessoa Jurídica).
//
// Acepta el formato numérico clásico y el alfanumérico (IN RFB 2.229/2024): las 12
// primeras posiciones pueden ser [0-9A-Z] y las 2 últimas son siempre dígitos verificadores.
package cnpj

import (
	"errors"
	"fmt"
	"strings"
)

// Length es la cantidad de caracteres de un CNPJ sin máscara.
const Length = 14

// pesos del módulo 11 para el primer y segundo dígito verificador.
var (
	firstWeights  = [12]int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	secondWeights = [13]int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// ErrInvalid se envuelve en todos los errores de validación.
var ErrInvalid = errors.New("cnpj: inválido")

// Normalize quita la máscara ("11.222.333/0001-81" -> "11222333000181") y pasa letras a mayúsculas.
// No valida; caracteres fuera de [0-9A-Za-z] se descartan.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(Length)
	for _, r := range strings.ToUpper(s) {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate normaliza s y comprueba longitud, alfabeto y dígitos verificadores.
// Devuelve el CNPJ normalizado si es válido.
func Validate(s string) (string, error) {
	n := Normalize(s)
	if len(n) != Length {
		return "", fmt.Errorf("%w: se esperaban %d caracteres, se recibieron %d", ErrInvalid, Length, len(n))
	}
	if !isDigit(n[12]) || !isDigit(n[13]) {
		return "", fmt.Errorf("%w: los dígitos verificadores deben ser numéricos", ErrInvalid)
	}
	if allSame(n) {
		return "", fmt.Errorf("%w: secuencia repetida", ErrInvalid)
	}
	dv, err := CheckDigits(n[:12])
	if err != nil {
		return "", err
	}
	if n[12:] != dv {
		return "", fmt.Errorf("%w: dígitos verificadores esperados %s, recibidos %s", ErrInvalid, dv, n[12:])
	}
	return n, nil
}

// CheckDigits calcula los dos dígitos verificadores para la base de 12 caracteres.
func CheckDigits(base string) (string, error) {
	base = Normalize(base)
	if len(base) != 12 {
		return "", fmt.Errorf("%w: la base debe tener 12 caracteres, se recibieron %d", ErrInvalid, len(base))
	}
	first := mod11(base, firstWeights[:])
	second := mod11(base+string(first), secondWeights[:])
	return string([]byte{first, second}), nil
}

// Format aplica la máscara 00.000.000/0000-00. Si s no tiene 14 caracteres lo devuelve normalizado.
func Format(s string) string {
	n := Normalize(s)
	if len(n) != Length {
		return n
	}
	return n[0:2] + "." + n[2:5] + "." + n[5:8] + "/" + n[8:12] + "-" + n[12:14]
}

// mod11 usa el valor ASCII - 48 de cada carácter, que coincide con el dígito para 0-9
// y da 17..42 para A..Z, como define la Receita Federal para el CNPJ alfanumérico.
func mod11(s string, weights []int) byte {
	var sum int
	for i := range weights {
		sum += int(s[i]-'0') * weights[i]
	}
	r := sum % 11
	if r < 2 {
		return '0'
	}
	return byte('0' + (11 - r))
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}
