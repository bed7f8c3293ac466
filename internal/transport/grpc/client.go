package grpcx

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Client - тонкий клиент LobbyService поверх JSON-кодека.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// WithBearer кладёт identity в исходящую metadata.
func WithBearer(ctx context.Context, identity string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, mdAuthorization, "Bearer "+identity)
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	return c.cc.Invoke(ctx, fullMethod(method), in, out, opts...)
}

func (c *Client) CreateRoom(ctx context.Context, in *CreateRoomRequest, opts ...grpc.CallOption) (*RoomResponse, error) {
	out := new(RoomResponse)
	if err := c.invoke(ctx, "CreateRoom", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetRoom(ctx context.Context, in *RoomRequest, opts ...grpc.CallOption) (*RoomResponse, error) {
	out := new(RoomResponse)
	if err := c.invoke(ctx, "GetRoom", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListRooms(ctx context.Context, in *ListRoomsRequest, opts ...grpc.CallOption) (*ListRoomsResponse, error) {
	out := new(ListRoomsResponse)
	if err := c.invoke(ctx, "ListRooms", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) JoinRoom(ctx context.Context, in *RoomRequest, opts ...grpc.CallOption) (*RoomResponse, error) {
	out := new(RoomResponse)
	if err := c.invoke(ctx, "JoinRoom", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) StartTeamComposition(ctx context.Context, in *StartTeamCompositionRequest, opts ...grpc.CallOption) (*RoomResponse, error) {
	out := new(RoomResponse)
	if err := c.invoke(ctx, "StartTeamComposition", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) StartMatches(ctx context.Context, in *StartMatchesRequest, opts ...grpc.CallOption) (*StartMatchesResponse, error) {
	out := new(StartMatchesResponse)
	if err := c.invoke(ctx, "StartMatches", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchRoom - поток событий комнаты; Recv до io.EOF или отмены ctx.
type WatchRoomStream struct {
	grpc.ClientStream
}

func (s *WatchRoomStream) Recv() (*RoomEvent, error) {
	ev := new(RoomEvent)
	if err := s.ClientStream.RecvMsg(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func (c *Client) WatchRoom(ctx context.Context, in *RoomRequest, opts ...grpc.CallOption) (*WatchRoomStream, error) {
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod("WatchRoom"), opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &WatchRoomStream{ClientStream: stream}, nil
}
