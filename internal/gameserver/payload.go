package gameserver

import (
	"fmt"
	"math"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/construct"
)

// maxExactFloat is the largest integer a JSON number carries without loss.
const maxExactFloat = 1 << 53

// intValue encodes v as a number when exact, otherwise as a decimal string.
func intValue(v int64) *structpb.Value {
	if v > -maxExactFloat && v < maxExactFloat {
		return structpb.NewNumberValue(float64(v))
	}
	return structpb.NewStringValue(strconv.FormatInt(v, 10))
}

func accountValue(id chain.AccountID) *structpb.Value {
	if uint64(id) < maxExactFloat {
		return structpb.NewNumberValue(float64(id))
	}
	return structpb.NewStringValue(strconv.FormatUint(uint64(id), 10))
}

// toInt decodes an integer carried as a whole number or a decimal string.
func toInt(key string, v *structpb.Value) (int64, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if f != math.Trunc(f) || f <= -maxExactFloat || f >= maxExactFloat {
			return 0, fmt.Errorf("%s: %v is not an exact integer", key, f)
		}
		return int64(f), nil
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(k.StringValue, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s: expected integer", key)
	}
}

// intField reads an optional integer field; ok is false when absent.
func intField(s *structpb.Struct, key string) (n int64, ok bool, err error) {
	v, present := s.GetFields()[key]
	if !present {
		return 0, false, nil
	}
	n, err = toInt(key, v)
	return n, err == nil, err
}

// accountField reads a required, non-zero account id.
func accountField(s *structpb.Struct, key string) (chain.AccountID, error) {
	n, ok, err := intField(s, key)
	if err != nil {
		return 0, err
	}
	if !ok || n <= 0 {
		return 0, fmt.Errorf("%s: required positive account id", key)
	}
	return chain.AccountID(n), nil
}

// decodeAction builds an Action from
// {"sender", "amount", "message": [..4], "attachments": [{"token", "quantity"}..4]}.
func decodeAction(s *structpb.Struct) (chain.Action, error) {
	var a chain.Action
	sender, err := accountField(s, "sender")
	if err != nil {
		return a, err
	}
	a.Sender = sender

	amount, _, err := intField(s, "amount")
	if err != nil {
		return a, err
	}
	if amount < 0 {
		return a, fmt.Errorf("amount: must not be negative")
	}
	a.Amount = amount

	if v, ok := s.GetFields()["message"]; ok {
		words := v.GetListValue().GetValues()
		if len(words) > chain.Slots {
			return a, fmt.Errorf("message: at most %d words", chain.Slots)
		}
		for i, w := range words {
			if a.Message[i], err = toInt(fmt.Sprintf("message[%d]", i), w); err != nil {
				return a, err
			}
		}
	}

	if v, ok := s.GetFields()["attachments"]; ok {
		items := v.GetListValue().GetValues()
		if len(items) > chain.Slots {
			return a, fmt.Errorf("attachments: at most %d slots", chain.Slots)
		}
		for i, item := range items {
			st := item.GetStructValue()
			if st == nil {
				return a, fmt.Errorf("attachments[%d]: expected object", i)
			}
			token, _, err := intField(st, "token")
			if err != nil {
				return a, fmt.Errorf("attachments[%d]: %w", i, err)
			}
			qty, _, err := intField(st, "quantity")
			if err != nil {
				return a, fmt.Errorf("attachments[%d]: %w", i, err)
			}
			if token < 0 {
				return a, fmt.Errorf("attachments[%d]: negative token id", i)
			}
			a.Attachments[i] = chain.Attachment{Token: chain.TokenID(token), Quantity: qty}
		}
	}
	return a, nil
}

func summaryValue(st construct.StepSummary) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"run_id":      structpb.NewStringValue(st.RunID.String()),
		"height":      intValue(st.Height),
		"actions":     structpb.NewNumberValue(float64(st.Actions)),
		"attacks":     structpb.NewNumberValue(float64(st.Attacks)),
		"commands":    structpb.NewNumberValue(float64(st.Commands)),
		"refunds":     structpb.NewNumberValue(float64(st.Refunds)),
		"damage":      intValue(st.Damage),
		"hitpoints":   intValue(st.Hitpoints),
		"regenerated": intValue(st.Regenerated),
		"deactivated": structpb.NewBoolValue(st.Deactivated),
		"settled":     structpb.NewBoolValue(st.Settled),
		"final_blow":  accountValue(st.FinalBlow),
	}})
}

// deliveryValue encodes a notice as {to, text, amount} and an event as
// {to, event: [code, a, b, c]}.
func deliveryValue(d chain.Delivery) *structpb.Value {
	fields := map[string]*structpb.Value{"to": accountValue(d.To)}
	switch {
	case d.Notice != nil:
		fields["text"] = structpb.NewStringValue(d.Notice.Text)
		fields["amount"] = intValue(d.Notice.Amount)
	case d.Event != nil:
		words := make([]*structpb.Value, 0, len(d.Event))
		for _, w := range d.Event {
			words = append(words, intValue(w))
		}
		fields["event"] = structpb.NewListValue(&structpb.ListValue{Values: words})
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: fields})
}
