package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/dice"
)

// RegisterModules registers the construct.* Lua table into L.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: construct global is defined in L.
func (r *Runner) RegisterModules(L *lua.LState) {
	mod := L.NewTable()
	L.SetField(mod, "COIN", lua.LNumber(chain.Coin))
	L.SetField(mod, "contract", lua.LNumber(r.contract))
	L.SetField(mod, "creator", lua.LNumber(r.genesis.Creator))
	L.SetField(mod, "reward_token", lua.LNumber(r.genesis.RewardToken))
	L.SetField(mod, "hp_token", lua.LNumber(r.hpToken))

	for name, fn := range map[string]lua.LGFunction{
		"attack":        r.luaAttack,
		"admin":         r.luaAdmin,
		"advance":       r.luaAdvance,
		"height":        r.luaHeight,
		"hitpoints":     r.luaHitpoints,
		"defeated":      r.luaDefeated,
		"active":        r.luaActive,
		"settled":       r.luaSettled,
		"balance":       r.luaBalance,
		"token_balance": r.luaTokenBalance,
		"stacks":        r.luaStacks,
		"first_blood":   r.luaFirstBlood,
		"final_blow":    r.luaFinalBlow,
		"notices":       r.luaNotices,
		"events":        r.luaEvents,
		"fund":          r.luaFund,
		"rolls":         r.luaRolls,
		"log":           r.luaLog,
	} {
		L.SetField(mod, name, L.NewFunction(fn))
	}
	L.SetGlobal("construct", mod)
}

func account(L *lua.LState, n int) chain.AccountID {
	v := L.CheckInt64(n)
	if v < 0 {
		L.ArgError(n, "account id must not be negative")
	}
	return chain.AccountID(v)
}

func (r *Runner) submit(L *lua.LState, a chain.Action) int {
	id, err := r.Submit(a)
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	L.Push(lua.LNumber(id))
	return 1
}

// attack(sender, amount, {token, quantity}...) -> tx id
func (r *Runner) luaAttack(L *lua.LState) int {
	a := chain.Action{Sender: account(L, 1), Amount: L.CheckInt64(2)}
	extra := L.GetTop() - 2
	if extra > chain.Slots {
		L.ArgError(3+chain.Slots, "too many attachments")
		return 0
	}
	for i := 0; i < extra; i++ {
		tbl := L.CheckTable(3 + i)
		token := tbl.RawGetInt(1)
		qty := tbl.RawGetInt(2)
		if token == lua.LNil {
			token = tbl.RawGetString("token")
			qty = tbl.RawGetString("quantity")
		}
		t, ok1 := token.(lua.LNumber)
		q, ok2 := qty.(lua.LNumber)
		if !ok1 || !ok2 {
			L.ArgError(3+i, "attachment must be {token, quantity}")
			return 0
		}
		a.Attachments[i] = chain.Attachment{Token: chain.TokenID(t), Quantity: int64(q)}
	}
	return r.submit(L, a)
}

// admin(opcode, a, b, c) -> tx id
func (r *Runner) luaAdmin(L *lua.LState) int {
	msg := [chain.Slots]int64{
		L.CheckInt64(1),
		L.OptInt64(2, 0),
		L.OptInt64(3, 0),
		L.OptInt64(4, 0),
	}
	return r.submit(L, chain.Action{Sender: r.genesis.Creator, Message: msg})
}

// advance(blocks) -> height
func (r *Runner) luaAdvance(L *lua.LState) int {
	n := L.OptInt(1, 1)
	height, err := r.Advance(L.Context(), n)
	if err != nil {
		L.RaiseError("advance: %v", err)
		return 0
	}
	L.Push(lua.LNumber(height))
	return 1
}

func (r *Runner) luaHeight(L *lua.LState) int {
	L.Push(lua.LNumber(r.Height()))
	return 1
}

func (r *Runner) luaHitpoints(L *lua.LState) int {
	L.Push(lua.LNumber(r.driver.Hitpoints()))
	return 1
}

func (r *Runner) luaDefeated(L *lua.LState) int {
	L.Push(lua.LBool(r.driver.State().Construct.Defeated))
	return 1
}

func (r *Runner) luaActive(L *lua.LState) int {
	L.Push(lua.LBool(r.driver.State().Construct.Active))
	return 1
}

func (r *Runner) luaSettled(L *lua.LState) int {
	L.Push(lua.LBool(r.driver.State().Construct.Settled))
	return 1
}

func (r *Runner) luaBalance(L *lua.LState) int {
	L.Push(lua.LNumber(r.ledger.NativeBalance(account(L, 1))))
	return 1
}

func (r *Runner) luaTokenBalance(L *lua.LState) int {
	acct := account(L, 1)
	token := chain.TokenID(L.CheckInt64(2))
	L.Push(lua.LNumber(r.ledger.TokenBalance(acct, token)))
	return 1
}

func (r *Runner) luaStacks(L *lua.LState) int {
	rec, _ := r.driver.Attacker(account(L, 1))
	L.Push(lua.LNumber(rec.DebuffStacks))
	return 1
}

func (r *Runner) luaFirstBlood(L *lua.LState) int {
	L.Push(lua.LNumber(r.driver.State().Construct.FirstBlood))
	return 1
}

func (r *Runner) luaFinalBlow(L *lua.LState) int {
	L.Push(lua.LNumber(r.driver.State().Construct.FinalBlow))
	return 1
}

// notices(account) -> texts delivered to account in the last block
func (r *Runner) luaNotices(L *lua.LState) int {
	to := account(L, 1)
	out := L.NewTable()
	for _, d := range r.last() {
		if d.To == to && d.Notice != nil {
			out.Append(lua.LString(d.Notice.Text))
		}
	}
	L.Push(out)
	return 1
}

// events(account) -> {code, a, b, c} tables delivered in the last block
func (r *Runner) luaEvents(L *lua.LState) int {
	to := account(L, 1)
	out := L.NewTable()
	for _, d := range r.last() {
		if d.To != to || d.Event == nil {
			continue
		}
		ev := L.NewTable()
		for i, w := range d.Event {
			ev.RawSetInt(i+1, lua.LNumber(w))
		}
		ev.RawSetString("code", lua.LNumber(d.Event.Code()))
		out.Append(ev)
	}
	L.Push(out)
	return 1
}

// fund(account, amount) credits native currency.
func (r *Runner) luaFund(L *lua.LState) int {
	amount := L.CheckInt64(2)
	if amount < 0 {
		L.ArgError(2, "amount must not be negative")
		return 0
	}
	r.ledger.Credit(account(L, 1), amount)
	return 0
}

// rolls(v...) queues the next random draws; requires a scripted source.
func (r *Runner) luaRolls(L *lua.LState) int {
	fixed, ok := r.rand.(*dice.FixedSource)
	if !ok {
		L.RaiseError("rolls: runner randomness is not scripted")
		return 0
	}
	values := make([]int, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		values = append(values, L.CheckInt(i))
	}
	fixed.Push(values...)
	return 0
}

func (r *Runner) luaLog(L *lua.LState) int {
	r.logger.Info("scenario", zap.String("msg", L.CheckString(1)), zap.Int64("height", r.Height()))
	return 0
}
