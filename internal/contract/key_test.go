package contract

import (
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
)

const testAddress = "0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D"

func TestDeriveKey_Format(t *testing.T) {
	assert.Equal(t,
		"1:0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d:name",
		DeriveKey("1", testAddress, FuncName, nil))
	assert.Equal(t,
		"1:0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d:tokenURI:5",
		DeriveKey("1", testAddress, FuncTokenURI, []string{"5"}))
	assert.Equal(t,
		"137:0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d:name",
		DeriveKey("137", testAddress, FuncName, []string{}))
}

func TestDeriveKey_AddressCaseCollides(t *testing.T) {
	lower := DeriveKey("1", strings.ToLower(testAddress), FuncOwnerOf, []string{"7"})
	upper := DeriveKey("1", strings.ToUpper(testAddress[2:]), FuncOwnerOf, []string{"7"})
	mixed := DeriveKey("1", testAddress, FuncOwnerOf, []string{"7"})

	assert.Equal(t, lower, mixed)
	assert.Equal(t, strings.ToLower(upper), upper)
}

func TestDeriveKey_ParamOrderMatters(t *testing.T) {
	a := DeriveKey("1", testAddress, FuncBalanceOf, []string{"1", "2"})
	b := DeriveKey("1", testAddress, FuncBalanceOf, []string{"2", "1"})
	assert.NotEqual(t, a, b)
}

func TestDeriveKey_Properties(t *testing.T) {
	faker := gofakeit.New(42)
	seen := make(map[string]string)

	for i := 0; i < 500; i++ {
		address := faker.Regex("0x[0-9a-fA-F]{40}")
		fn := Functions()[faker.Number(0, len(Functions())-1)]
		var params []string
		if fn.Describe().Params != NoParams {
			params = []string{faker.Numerify("#########")}
		}

		key := DeriveKey("1", address, fn, params)

		// deterministic and case-insensitive on the address
		assert.Equal(t, key, DeriveKey("1", address, fn, params))
		assert.Equal(t, key, DeriveKey("1", strings.ToLower(address), fn, params))

		id := strings.ToLower(address) + "|" + fn.String() + "|" + strings.Join(params, ",")
		if prev, ok := seen[key]; ok {
			assert.Equal(t, prev, id, "distinct inputs collided on %s", key)
		}
		seen[key] = id
	}
}

func TestJoinParams(t *testing.T) {
	assert.Equal(t, "", JoinParams(nil))
	assert.Equal(t, "5", JoinParams([]string{"5"}))
	assert.Equal(t, "1,2", JoinParams([]string{"1", "2"}))
}
