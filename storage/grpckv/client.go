package grpckv

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"cairn.systems/objectstate/object"
	"cairn.systems/objectstate/storage"
)

// Client implements storage.KV over a KV gRPC service.
//
// The KV interface carries no context; each RPC runs under the
// client's own Timeout when one is set.
type Client struct {
	cc     *grpc.ClientConn
	client KVClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ storage.KV = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewKVClient(cc), Timeout: 0}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Create(addr object.Address, record []byte) error {
	if err := c.check(addr); err != nil {
		return err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	_, err := c.client.Create(ctx, frameRecord(addr, record))
	return mapRPC(err)
}

func (c *Client) Read(addr object.Address) ([]byte, error) {
	if err := c.check(addr); err != nil {
		return nil, err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Read(ctx, frameAddr(addr))
	if err != nil {
		return nil, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) Write(addr object.Address, record []byte) error {
	if err := c.check(addr); err != nil {
		return err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	_, err := c.client.Write(ctx, frameRecord(addr, record))
	return mapRPC(err)
}

func (c *Client) Delete(addr object.Address) error {
	if err := c.check(addr); err != nil {
		return err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	_, err := c.client.Delete(ctx, frameAddr(addr))
	return mapRPC(err)
}

func (c *Client) Has(addr object.Address) bool {
	if c.check(addr) != nil {
		return false
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Has(ctx, frameAddr(addr))
	if err != nil {
		return false
	}
	return reply.GetValue()
}

func (c *Client) check(addr object.Address) error {
	if c == nil || c.client == nil {
		return errors.New("grpckv: client is not connected")
	}
	if addr.IsZero() {
		return storage.ErrInvalidAddress
	}
	return nil
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}
