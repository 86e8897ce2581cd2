package construct_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/construct"
)

const genesisYAML = `
name: CT000042
contract: 999
creator: 555
reward_token: 1000
max_hitpoints: 50000
breach_limit_percent: 25
distribution:
  players: 80
  treasury: 10
debuff:
  chance: 20
  reduction: 10
  max_stack: 3
regeneration:
  block_interval: 100
  hitpoints: 500
tokens:
  - id: 2001
    decimals: 2
    multiplier: 150
    limit: 5
  - id: 2002
    addition: 40
accounts:
  - id: 999
    tokens:
      1000: 1000000
  - id: 10
    balance: 100000000000
collectibles:
  - id: 4242
    owner: 555
`

func TestLoadGenesis_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(genesisYAML), 0o644))

	g, err := construct.LoadGenesis(path)
	require.NoError(t, err)
	assert.Equal(t, "CT000042", g.Name)
	assert.Equal(t, chain.AccountID(999), g.Contract)
	assert.Equal(t, int64(50000), g.MaxHitpoints)
	assert.Equal(t, construct.GenesisDistribution{Players: 80, Treasury: 10}, g.Distribution)
	require.Len(t, g.Tokens, 2)
	require.NotNil(t, g.Tokens[0].Decimals)
	assert.Equal(t, int64(2), *g.Tokens[0].Decimals)
	assert.Nil(t, g.Tokens[1].Decimals)
	assert.Equal(t, int64(1_000_000), g.Accounts[0].Tokens[1000])
}

func TestParseGenesis_RejectsUnknownFields(t *testing.T) {
	_, err := construct.ParseGenesis([]byte(genesisYAML + "hitpoints: 3\n"))
	assert.Error(t, err)
}

func TestLoadGenesis_MissingFile(t *testing.T) {
	_, err := construct.LoadGenesis(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGenesisValidate_ReportsAllViolations(t *testing.T) {
	g := construct.Genesis{Contract: 1, Creator: 1, MaxHitpoints: -1}
	err := g.Validate()
	require.Error(t, err)
	for _, want := range []string{"name", "creator", "reward_token", "max_hitpoints"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestDeploy_FromParsedGenesis(t *testing.T) {
	g, err := construct.ParseGenesis([]byte(genesisYAML))
	require.NoError(t, err)
	f := newFixture(t, func(base *construct.Genesis) { *base = g })

	c := f.state()
	assert.Equal(t, int64(50000), f.hitpoints())
	assert.Equal(t, int64(25), c.Params.BreachLimitPercent)
	assert.Equal(t, construct.DefaultCoolDown, c.Params.CoolDown)
	assert.Equal(t, construct.DefaultFinalBlowBonus, c.Params.FinalBlowBonus)
	assert.Equal(t, construct.Distribution{PlayersPercent: 80, TreasuryPercent: 10}, c.Params.Distribution)

	boost := c.Modifiers.Lookup(2001)
	assert.Equal(t, int64(150), boost.MultiplierPercent)
	assert.Equal(t, int64(5), boost.QuantityLimit)
	assert.Equal(t, 2, boost.Decimals)
	_, registered := c.Modifiers.Decimals(2002)
	assert.False(t, registered)
	assert.Equal(t, int64(40), c.Modifiers.Lookup(2002).AdditionFlat)
}

func TestGenesisValidate_RejectsOutOfRangeShares(t *testing.T) {
	g := baseGenesis()
	g.Distribution = construct.GenesisDistribution{Players: math.MaxInt64, Treasury: 1}
	g.Debuff.Reduction = -5000
	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "distribution")
	assert.Contains(t, err.Error(), "debuff reduction")
}
