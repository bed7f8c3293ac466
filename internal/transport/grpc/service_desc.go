package grpcx

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "lobby.v1.LobbyService"

type LobbyServer interface {
	CreateRoom(ctx context.Context, in *CreateRoomRequest) (*RoomResponse, error)
	GetRoom(ctx context.Context, in *RoomRequest) (*RoomResponse, error)
	ListRooms(ctx context.Context, in *ListRoomsRequest) (*ListRoomsResponse, error)
	JoinRoom(ctx context.Context, in *RoomRequest) (*RoomResponse, error)
	StartTeamComposition(ctx context.Context, in *StartTeamCompositionRequest) (*RoomResponse, error)
	StartMatches(ctx context.Context, in *StartMatchesRequest) (*StartMatchesResponse, error)
	WatchRoom(in *RoomRequest, stream grpc.ServerStream) error
}

// ServiceDesc описан вручную: сообщения - обычные структуры под JSON-кодеком.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LobbyServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateRoom", LobbyServer.CreateRoom),
		unary("GetRoom", LobbyServer.GetRoom),
		unary("ListRooms", LobbyServer.ListRooms),
		unary("JoinRoom", LobbyServer.JoinRoom),
		unary("StartTeamComposition", LobbyServer.StartTeamComposition),
		unary("StartMatches", LobbyServer.StartMatches),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchRoom",
			Handler:       watchRoomHandler,
			ServerStreams: true,
		},
	},
	Metadata: "lobby/v1/lobby.json",
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp any](name string, call func(LobbyServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LobbyServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(LobbyServer), ctx, req.(*Req))
			})
		},
	}
}

func watchRoomHandler(srv any, stream grpc.ServerStream) error {
	in := new(RoomRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(LobbyServer).WatchRoom(in, stream)
}
