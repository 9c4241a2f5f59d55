package cnpj_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/vigia-auth/pkg/cnpj"
)

func TestValidate_Validos(t *testing.T) {
	casos := map[string]string{
		"con máscara":    "11.222.333/0001-81",
		"sin máscara":    "11444777000161",
		"alfanumérico":   "12.ABC.345/01DE-35",
		"minúsculas":     "12.abc.345/01de-35",
		"espacios extra": "  11.222.333/0001-81 ",
	}
	for name, in := range casos {
		t.Run(name, func(t *testing.T) {
			n, err := cnpj.Validate(in)
			require.NoError(t, err)
			assert.Len(t, n, cnpj.Length)
		})
	}
}

func TestValidate_Invalidos(t *testing.T) {
	casos := map[string]string{
		"dígito verificador": "11.111.111/0001-11",
		"corto":              "11.222.333/0001",
		"repetido":           "00.000.000/0000-00",
		"dv alfabético":      "12ABC34501DEAB",
		"vacío":              "",
	}
	for name, in := range casos {
		t.Run(name, func(t *testing.T) {
			_, err := cnpj.Validate(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, cnpj.ErrInvalid)
		})
	}
}

func TestCheckDigits(t *testing.T) {
	dv, err := cnpj.CheckDigits("112223330001")
	require.NoError(t, err)
	assert.Equal(t, "81", dv)

	dv, err = cnpj.CheckDigits("12ABC34501DE")
	require.NoError(t, err)
	assert.Equal(t, "35", dv)

	_, err = cnpj.CheckDigits("123")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "11.222.333/0001-81", cnpj.Format("11222333000181"))
	assert.Equal(t, "123", cnpj.Format("1-2-3"))
}
