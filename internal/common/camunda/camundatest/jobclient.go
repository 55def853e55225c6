// Package camundatest provides an in-memory Zeebe job client for handler
// tests.
package camundatest

import (
	"context"
	"sync"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"google.golang.org/grpc"
)

// JobClient records every command a handler sends instead of talking to a
// gateway.
type JobClient struct {
	gateway *gateway
}

func NewJobClient() *JobClient {
	return &JobClient{gateway: &gateway{}}
}

func neverRetry(context.Context, error) bool { return false }

func (c *JobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c.gateway, neverRetry)
}

func (c *JobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c.gateway, neverRetry)
}

func (c *JobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c.gateway, neverRetry)
}

// Completed returns the complete requests sent so far.
func (c *JobClient) Completed() []*pb.CompleteJobRequest {
	c.gateway.mu.Lock()
	defer c.gateway.mu.Unlock()
	return append([]*pb.CompleteJobRequest(nil), c.gateway.completed...)
}

// Failed returns the fail requests sent so far.
func (c *JobClient) Failed() []*pb.FailJobRequest {
	c.gateway.mu.Lock()
	defer c.gateway.mu.Unlock()
	return append([]*pb.FailJobRequest(nil), c.gateway.failed...)
}

// Thrown returns the throw-error requests sent so far.
func (c *JobClient) Thrown() []*pb.ThrowErrorRequest {
	c.gateway.mu.Lock()
	defer c.gateway.mu.Unlock()
	return append([]*pb.ThrowErrorRequest(nil), c.gateway.thrown...)
}

// NewJob builds an activated job carrying variables.
func NewJob(key int64, taskType, variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:       key,
		Type:      taskType,
		Retries:   3,
		Variables: variables,
	}}
}

// gateway implements the three job commands; any other call panics on the
// nil embedded client.
type gateway struct {
	pb.GatewayClient

	mu        sync.Mutex
	completed []*pb.CompleteJobRequest
	failed    []*pb.FailJobRequest
	thrown    []*pb.ThrowErrorRequest
}

func (g *gateway) CompleteJob(_ context.Context, in *pb.CompleteJobRequest, _ ...grpc.CallOption) (*pb.CompleteJobResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed = append(g.completed, in)
	return &pb.CompleteJobResponse{}, nil
}

func (g *gateway) FailJob(_ context.Context, in *pb.FailJobRequest, _ ...grpc.CallOption) (*pb.FailJobResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failed = append(g.failed, in)
	return &pb.FailJobResponse{}, nil
}

func (g *gateway) ThrowError(_ context.Context, in *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.thrown = append(g.thrown, in)
	return &pb.ThrowErrorResponse{}, nil
}
