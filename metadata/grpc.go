package metadata

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	rpb "google.golang.org/grpc/reflection/grpc_reflection_v1alpha"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/c360/genomegate/errors"
)

// GRPCTransport calls the metadata service over gRPC without generated
// stubs. The service descriptor is fetched once through server reflection
// and messages are built dynamically from it.
type GRPCTransport struct {
	conn   *grpc.ClientConn
	owned  bool
	logger *slog.Logger

	mu      sync.Mutex
	service protoreflect.ServiceDescriptor
}

// DialGRPC opens an insecure channel to target. The connection is lazy;
// the first call performs the reflection handshake.
func DialGRPC(target string, logger *slog.Logger, opts ...grpc.DialOption) (*GRPCTransport, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, errors.WrapFatal(err, "GRPCTransport", "Dial", "create channel to "+target)
	}
	t := NewGRPCTransport(conn, logger)
	t.owned = true
	return t, nil
}

// NewGRPCTransport uses an existing connection, which the caller keeps
// ownership of.
func NewGRPCTransport(conn *grpc.ClientConn, logger *slog.Logger) *GRPCTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCTransport{conn: conn, logger: logger.With("component", "metadata-grpc")}
}

// Close closes the channel if the transport dialed it.
func (t *GRPCTransport) Close() error {
	if t.owned {
		return t.conn.Close()
	}
	return nil
}

// Call implements Transport.
func (t *GRPCTransport) Call(ctx context.Context, method string, request any) ([]json.RawMessage, error) {
	md, err := t.method(ctx, method)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, errors.WrapInvalid(err, "GRPCTransport", method, "encode request")
	}
	req := dynamicpb.NewMessage(md.Input())
	if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(body, req); err != nil {
		return nil, errors.WrapInvalid(err, "GRPCTransport", method, "build request")
	}

	fullMethod := fmt.Sprintf("/%s/%s", md.Parent().FullName(), md.Name())
	var messages []proto.Message
	if md.IsStreamingServer() {
		messages, err = t.stream(ctx, fullMethod, req, md.Output())
	} else {
		resp := dynamicpb.NewMessage(md.Output())
		err = t.conn.Invoke(ctx, fullMethod, req, resp)
		messages = []proto.Message{resp}
	}
	if err != nil {
		return nil, mapStatus(err)
	}

	out := make([]json.RawMessage, 0, len(messages))
	for _, m := range messages {
		raw, err := (protojson.MarshalOptions{UseProtoNames: true}).Marshal(m)
		if err != nil {
			return nil, errors.WrapInvalid(err, "GRPCTransport", method, "encode response")
		}
		out = append(out, raw)
	}
	return out, nil
}

func (t *GRPCTransport) stream(ctx context.Context, fullMethod string, req proto.Message, output protoreflect.MessageDescriptor) ([]proto.Message, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	desc := &grpc.StreamDesc{StreamName: fullMethod, ServerStreams: true}
	stream, err := t.conn.NewStream(ctx, desc, fullMethod)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}

	var out []proto.Message
	for {
		m := dynamicpb.NewMessage(output)
		err := stream.RecvMsg(m)
		if stderrors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
}

// mapStatus turns a NotFound status into an empty result and an
// InvalidArgument status into a query error. Everything else is left for
// the client to report as an unavailable upstream.
func mapStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return nil
	case codes.InvalidArgument:
		return errors.InvalidArgument(st.Message())
	default:
		return err
	}
}

func (t *GRPCTransport) method(ctx context.Context, name string) (protoreflect.MethodDescriptor, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.service == nil {
		sd, err := t.resolveService(ctx)
		if err != nil {
			return nil, err
		}
		t.service = sd
		t.logger.Info("Resolved metadata service descriptor", "service", sd.FullName(), "methods", sd.Methods().Len())
	}

	md := t.service.Methods().ByName(protoreflect.Name(name))
	if md == nil {
		return nil, errors.WrapFatal(fmt.Errorf("method %s not offered", name), "GRPCTransport", "method", "lookup")
	}
	return md, nil
}

func (t *GRPCTransport) resolveService(ctx context.Context) (protoreflect.ServiceDescriptor, error) {
	stream, err := rpb.NewServerReflectionClient(t.conn).ServerReflectionInfo(ctx)
	if err != nil {
		return nil, errors.WrapTransient(err, "GRPCTransport", "resolveService", "open reflection stream")
	}
	defer func() { _ = stream.CloseSend() }()

	err = stream.Send(&rpb.ServerReflectionRequest{
		MessageRequest: &rpb.ServerReflectionRequest_FileContainingSymbol{FileContainingSymbol: ServiceName},
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "GRPCTransport", "resolveService", "send reflection request")
	}
	resp, err := stream.Recv()
	if err != nil {
		return nil, errors.WrapTransient(err, "GRPCTransport", "resolveService", "receive reflection response")
	}
	if e := resp.GetErrorResponse(); e != nil {
		return nil, errors.WrapFatal(stderrors.New(e.GetErrorMessage()), "GRPCTransport", "resolveService", "reflect "+ServiceName)
	}

	set := &descriptorpb.FileDescriptorSet{}
	for _, raw := range resp.GetFileDescriptorResponse().GetFileDescriptorProto() {
		fdp := &descriptorpb.FileDescriptorProto{}
		if err := proto.Unmarshal(raw, fdp); err != nil {
			return nil, errors.WrapInvalid(err, "GRPCTransport", "resolveService", "decode file descriptor")
		}
		set.File = append(set.File, fdp)
	}

	files, err := (protodesc.FileOptions{AllowUnresolvable: true}).NewFiles(set)
	if err != nil {
		return nil, errors.WrapInvalid(err, "GRPCTransport", "resolveService", "build descriptors")
	}
	d, err := files.FindDescriptorByName(ServiceName)
	if err != nil {
		return nil, errors.WrapFatal(err, "GRPCTransport", "resolveService", "find service")
	}
	sd, ok := d.(protoreflect.ServiceDescriptor)
	if !ok {
		return nil, errors.WrapFatal(fmt.Errorf("%s is not a service", ServiceName), "GRPCTransport", "resolveService", "find service")
	}
	return sd, nil
}
