package diagnostics

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const diagnoseMethod = "/substrate.SupervisorService/Diagnose"

// #region client

// CodecGenerator forwards prompts to a supervisor sidecar over gRPC.
type CodecGenerator struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// NewCodecGenerator connects to the supervisor service at addr.
func NewCodecGenerator(addr string, opts ...grpc.DialOption) (*CodecGenerator, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &CodecGenerator{conn: conn, cc: conn}, nil
}

// NewCodecGeneratorWithConn wraps an existing connection. Close is then a no-op.
func NewCodecGeneratorWithConn(cc grpc.ClientConnInterface) *CodecGenerator {
	return &CodecGenerator{cc: cc}
}

// Close shuts down the owned connection.
func (c *CodecGenerator) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Generate sends prompt to the Diagnose RPC.
func (c *CodecGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, diagnoseMethod, wrapperspb.String(prompt), out); err != nil {
		return "", fmt.Errorf("diagnose rpc: %w", err)
	}
	return out.GetValue(), nil
}

// #endregion client

// #region server

// SupervisorServer is the server side of the Diagnose RPC.
type SupervisorServer interface {
	Diagnose(ctx context.Context, prompt *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

// RegisterSupervisorServer attaches srv to s.
func RegisterSupervisorServer(s grpc.ServiceRegistrar, srv SupervisorServer) {
	s.RegisterService(&supervisorServiceDesc, srv)
}

// NewSupervisorServer exposes a Generator as a SupervisorServer, so one process
// can hold the model credentials and serve several substrates.
func NewSupervisorServer(gen Generator) SupervisorServer {
	return generatorServer{gen: gen}
}

type generatorServer struct {
	gen Generator
}

func (g generatorServer) Diagnose(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	text, err := g.gen.Generate(ctx, in.GetValue())
	if err != nil {
		return nil, err
	}
	return wrapperspb.String(text), nil
}

func diagnoseHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SupervisorServer).Diagnose(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: diagnoseMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SupervisorServer).Diagnose(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

var supervisorServiceDesc = grpc.ServiceDesc{
	ServiceName: "substrate.SupervisorService",
	HandlerType: (*SupervisorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Diagnose", Handler: diagnoseHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "substrate/supervisor.proto",
}

// #endregion server
