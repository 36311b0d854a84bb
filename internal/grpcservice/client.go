package grpcservice

import (
	"context"

	"google.golang.org/grpc"
)

// CallOptions selects the JSON codec. Pass them to grpc.WithDefaultCallOptions
// when dialing, or rely on Client which adds them to every call.
func CallOptions() []grpc.CallOption {
	return []grpc.CallOption{grpc.CallContentSubtype(CodecName)}
}

// Client is the client API for the History service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append(CallOptions(), opts...)
	if err := c.cc.Invoke(ctx, fullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) List(ctx context.Context, req *ListRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	return invoke[ListResponse](ctx, c, "List", req, opts)
}

func (c *Client) Search(ctx context.Context, req *SearchRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	return invoke[ListResponse](ctx, c, "Search", req, opts)
}

func (c *Client) Select(ctx context.Context, req *SelectRequest, opts ...grpc.CallOption) (*SelectResponse, error) {
	return invoke[SelectResponse](ctx, c, "Select", req, opts)
}

func (c *Client) Pin(ctx context.Context, req *PinRequest, opts ...grpc.CallOption) (*PinResponse, error) {
	return invoke[PinResponse](ctx, c, "Pin", req, opts)
}

func (c *Client) Delete(ctx context.Context, req *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse, error) {
	return invoke[DeleteResponse](ctx, c, "Delete", req, opts)
}

func (c *Client) Clear(ctx context.Context, req *ClearRequest, opts ...grpc.CallOption) (*ClearResponse, error) {
	return invoke[ClearResponse](ctx, c, "Clear", req, opts)
}

func (c *Client) Status(ctx context.Context, req *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c, "Status", req, opts)
}

// WatchClient receives the events of a Watch call.
type WatchClient struct {
	grpc.ClientStream
}

func (x *WatchClient) Recv() (*WatchEvent, error) {
	m := new(WatchEvent)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Watch streams history changes until ctx is cancelled.
func (c *Client) Watch(ctx context.Context, req *WatchRequest, opts ...grpc.CallOption) (*WatchClient, error) {
	opts = append(CallOptions(), opts...)
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], fullMethod("Watch"), opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &WatchClient{stream}, nil
}
