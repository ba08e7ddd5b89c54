package fixtures

import (
	"encoding/hex"

	"github.com/get402/get402-go/principal/secp256k1/signer"
	"github.com/get402/get402-go/testing/helpers"
)

func fromHex(s string) []byte {
	return helpers.Must(hex.DecodeString(s))
}

// Deterministic principals for tests. The scalars are arbitrary fixed values
// below the group order.
var Alice = helpers.Must(signer.Decode(fromHex("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")))

var Bob = helpers.Must(signer.Decode(fromHex("59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")))

var Mallory = helpers.Must(signer.Decode(fromHex("5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a")))
