package gameserver

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/construct"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "construct.v1.ConstructService"

// ConstructServer is the server API of the Construct gRPC service.
// Requests and responses are free-form structs.
type ConstructServer interface {
	SubmitAction(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetState(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetAttacker(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetJournal(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetDeliveries(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetSnapshot(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(ConstructServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ConstructServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(ConstructServer), ctx, req.(*structpb.Struct))
		})
	}
}

// ConstructServiceDesc describes the Construct service for grpc.Server.RegisterService.
var ConstructServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConstructServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitAction", Handler: unaryHandler("SubmitAction", ConstructServer.SubmitAction)},
		{MethodName: "GetState", Handler: unaryHandler("GetState", ConstructServer.GetState)},
		{MethodName: "GetAttacker", Handler: unaryHandler("GetAttacker", ConstructServer.GetAttacker)},
		{MethodName: "GetJournal", Handler: unaryHandler("GetJournal", ConstructServer.GetJournal)},
		{MethodName: "GetDeliveries", Handler: unaryHandler("GetDeliveries", ConstructServer.GetDeliveries)},
		{MethodName: "GetSnapshot", Handler: unaryHandler("GetSnapshot", ConstructServer.GetSnapshot)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "construct/v1/construct.proto",
}

// RegisterConstructServer registers srv on s.
func RegisterConstructServer(s grpc.ServiceRegistrar, srv ConstructServer) {
	s.RegisterService(&ConstructServiceDesc, srv)
}

// ConstructClient calls the Construct service.
type ConstructClient struct {
	cc grpc.ClientConnInterface
}

// NewConstructClient wraps cc.
func NewConstructClient(cc grpc.ClientConnInterface) *ConstructClient {
	return &ConstructClient{cc: cc}
}

func (c *ConstructClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitAction queues an action for the next block.
func (c *ConstructClient) SubmitAction(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "SubmitAction", in, opts)
}

// GetState returns the Construct state.
func (c *ConstructClient) GetState(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetState", in, opts)
}

// GetAttacker returns one attacker's status.
func (c *ConstructClient) GetAttacker(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetAttacker", in, opts)
}

// GetJournal returns the most recent step summaries.
func (c *ConstructClient) GetJournal(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetJournal", in, opts)
}

// GetDeliveries returns the notices and events of one step.
func (c *ConstructClient) GetDeliveries(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetDeliveries", in, opts)
}

// GetSnapshot returns the latest saved snapshot.
func (c *ConstructClient) GetSnapshot(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetSnapshot", in, opts)
}

// Submitter accepts actions into the mempool.
type Submitter interface {
	Submit(a chain.Action) (uint64, error)
	Len() int
}

// HeightSource reports the last produced block height.
type HeightSource interface {
	Height() int64
}

// Journal limits for GetJournal.
const (
	DefaultJournalLimit = 10
	MaxJournalLimit     = 100
)

// ConstructService implements ConstructServer over a Driver, a mempool and
// the block store.
type ConstructService struct {
	driver  *construct.Driver
	pool    Submitter
	heights HeightSource
	store   Store
	logger  *zap.Logger
}

// NewConstructService creates the service.
//
// Precondition: all arguments must be non-nil.
func NewConstructService(driver *construct.Driver, pool Submitter, heights HeightSource, store Store, logger *zap.Logger) *ConstructService {
	return &ConstructService{driver: driver, pool: pool, heights: heights, store: store, logger: logger}
}

// SubmitAction validates and queues one action.
//
// Postcondition: on success the response carries "tx_id" and the action's
// value has moved to the contract.
func (s *ConstructService) SubmitAction(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	a, err := decodeAction(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	id, err := s.pool.Submit(a)
	switch {
	case errors.Is(err, chain.ErrInsufficientFunds):
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, chain.ErrNegativeAmount), errors.Is(err, chain.ErrUnknownToken), errors.Is(err, chain.ErrDuplicateAttachment):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case err != nil:
		s.logger.Error("submitting action", zap.Stringer("sender", a.Sender), zap.Error(err))
		return nil, status.Error(codes.Internal, "submitting action failed")
	}
	s.logger.Debug("action submitted",
		zap.Uint64("tx_id", id),
		zap.Stringer("sender", a.Sender),
		zap.Int64("amount", a.Amount),
	)
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"tx_id":   structpb.NewNumberValue(float64(id)),
		"pending": structpb.NewNumberValue(float64(s.pool.Len())),
	}}, nil
}

// GetState returns the Construct's public state.
func (s *ConstructService) GetState(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	st := s.driver.State()
	c := st.Construct
	breach, _ := c.BreachDamage()
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"name":                 structpb.NewStringValue(c.Name),
		"contract":             accountValue(c.Self),
		"creator":              accountValue(c.Creator),
		"height":               intValue(s.heights.Height()),
		"hitpoints":            intValue(st.Hitpoints),
		"max_hitpoints":        intValue(c.MaxHitpoints),
		"reward_reserve":       intValue(st.RewardReserve),
		"active":               structpb.NewBoolValue(c.Active),
		"defeated":             structpb.NewBoolValue(c.Defeated),
		"settled":              structpb.NewBoolValue(c.Settled),
		"first_blood":          accountValue(c.FirstBlood),
		"final_blow":           accountValue(c.FinalBlow),
		"cooldown":             intValue(c.Params.CoolDown),
		"breach_limit_percent": intValue(c.Params.BreachLimitPercent),
		"breach_damage":        intValue(breach),
		"pending":              structpb.NewNumberValue(float64(s.pool.Len())),
	}}, nil
}

// GetAttacker returns the status of {"attacker": id}.
//
// Postcondition: Returns codes.NotFound when the account never attacked.
func (s *ConstructService) GetAttacker(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := accountField(in, "attacker")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	c := s.driver.Snapshot()
	rec, ok := c.Attackers.Get(id)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "attacker %s has no status", id)
	}
	next := s.heights.Height() + 1
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"attacker":           accountValue(id),
		"attacked":           structpb.NewBoolValue(rec.Attacked),
		"last_attack_height": intValue(rec.LastAttackHeight),
		"debuff_stacks":      intValue(rec.DebuffStacks),
		"effective_stacks":   intValue(c.Attackers.EffectiveStacks(id, c.Params.Debuff.MaxStack)),
		"in_cooldown":        structpb.NewBoolValue(c.Attackers.InCooldown(id, next, c.Params.CoolDown)),
	}}, nil
}

// GetJournal returns up to {"limit": n} recent step summaries, newest first.
// limit defaults to DefaultJournalLimit and is capped at MaxJournalLimit.
func (s *ConstructService) GetJournal(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	limit, ok, err := intField(in, "limit")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	switch {
	case !ok:
		limit = DefaultJournalLimit
	case limit <= 0:
		return nil, status.Errorf(codes.InvalidArgument, "limit must be positive, got %d", limit)
	}
	limit = min(limit, MaxJournalLimit)

	contract := s.driver.Snapshot().Self
	steps, err := s.store.RecentSteps(ctx, contract, int(limit))
	if err != nil {
		s.logger.Error("reading journal", zap.Error(err))
		return nil, status.Error(codes.Internal, "reading journal failed")
	}
	list := make([]*structpb.Value, 0, len(steps))
	for _, st := range steps {
		list = append(list, summaryValue(st))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"steps": structpb.NewListValue(&structpb.ListValue{Values: list}),
	}}, nil
}

// GetDeliveries returns the notices and events recorded for {"run_id": uuid}.
func (s *ConstructService) GetDeliveries(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	raw, ok := in.GetFields()["run_id"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}
	runID, err := uuid.Parse(raw.GetStringValue())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "run_id: %v", err)
	}
	deliveries, err := s.store.StepDeliveries(ctx, runID)
	if err != nil {
		s.logger.Error("reading deliveries", zap.Stringer("run_id", runID), zap.Error(err))
		return nil, status.Error(codes.Internal, "reading deliveries failed")
	}
	list := make([]*structpb.Value, 0, len(deliveries))
	for _, d := range deliveries {
		list = append(list, deliveryValue(d))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"run_id":     structpb.NewStringValue(runID.String()),
		"deliveries": structpb.NewListValue(&structpb.ListValue{Values: list}),
	}}, nil
}

// GetSnapshot describes the latest saved snapshot.
//
// Postcondition: Returns codes.NotFound when no snapshot was saved yet.
func (s *ConstructService) GetSnapshot(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	contract := s.driver.Snapshot().Self
	rec, ok, err := s.store.LatestSnapshot(ctx, contract)
	if err != nil {
		s.logger.Error("reading snapshot", zap.Error(err))
		return nil, status.Error(codes.Internal, "reading snapshot failed")
	}
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no snapshot of %s", contract)
	}
	c := rec.Construct
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"snapshot_id": structpb.NewStringValue(rec.ID.String()),
		"height":      intValue(rec.Height),
		"active":      structpb.NewBoolValue(c.Active),
		"defeated":    structpb.NewBoolValue(c.Defeated),
		"settled":     structpb.NewBoolValue(c.Settled),
		"first_blood": accountValue(c.FirstBlood),
		"final_blow":  accountValue(c.FinalBlow),
		"attackers":   structpb.NewNumberValue(float64(len(c.Attackers.Attackers()))),
		"tokens":      structpb.NewNumberValue(float64(len(c.Modifiers.Tokens()))),
	}}, nil
}
