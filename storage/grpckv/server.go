package grpckv

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"cairn.systems/objectstate/storage"
)

// Server exposes a storage.KV over the KV gRPC service.
type Server struct {
	UnimplementedKVServer
	KV storage.KV
}

func (s *Server) ready() error {
	if s == nil || s.KV == nil {
		return status.Error(codes.FailedPrecondition, "missing KV")
	}
	return nil
}

func (s *Server) Create(ctx context.Context, in *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	addr, record, err := splitRecord(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.KV.Create(addr, record); err != nil {
		return nil, mapErr(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) Read(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	addr, err := parseAddr(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	record, err := s.KV.Read(addr)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(record), nil
}

func (s *Server) Write(ctx context.Context, in *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	addr, record, err := splitRecord(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.KV.Write(addr, record); err != nil {
		return nil, mapErr(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) Delete(ctx context.Context, in *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	addr, err := parseAddr(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.KV.Delete(addr); err != nil {
		return nil, mapErr(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	addr, err := parseAddr(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return wrapperspb.Bool(s.KV.Has(addr)), nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case storage.IsNotFound(err):
		return status.Error(codes.NotFound, storage.ErrNotFound.Error())
	case storage.IsExists(err):
		return status.Error(codes.AlreadyExists, storage.ErrExists.Error())
	case err == storage.ErrInvalidAddress:
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
