package workload

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/sirupsen/logrus"

	"energy-bench/internal/logging"
)

const defaultStressImage = "alexeiled/stress-ng:latest"

// Stress keeps a stress-ng container loading two CPUs for the duration of a
// run, so measurements capture behavior under contention.
type Stress struct {
	image string

	cli         *client.Client
	containerID string
	logger      *logrus.Logger
}

func NewStress() *Stress {
	return &Stress{image: defaultStressImage, logger: logging.GetLogger()}
}

func (s *Stress) Name() string { return "stress" }

func (s *Stress) Enter(ctx context.Context) error {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return fmt.Errorf("failed to create docker client: %w", err)
	}
	s.cli = cli

	// A locally cached image is fine, pull failures only matter if the
	// create below fails too.
	if reader, err := cli.ImagePull(ctx, s.image, types.ImagePullOptions{}); err == nil {
		io.Copy(io.Discard, reader)
		reader.Close()
	} else {
		s.logger.WithField("image", s.image).WithError(err).Debug("Image pull failed, relying on local cache")
	}

	config := &container.Config{
		Image: s.image,
		Cmd:   []string{"--cpu", "2", "--timeout", "0"},
	}
	resp, err := cli.ContainerCreate(ctx, config, &container.HostConfig{}, nil, nil, "")
	if err != nil {
		cli.Close()
		s.cli = nil
		return fmt.Errorf("failed to create stress container: %w", err)
	}
	s.containerID = resp.ID

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		cli.ContainerRemove(ctx, resp.ID, types.ContainerRemoveOptions{Force: true})
		cli.Close()
		s.cli = nil
		s.containerID = ""
		return fmt.Errorf("failed to start stress container: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"container_id": resp.ID[:12],
		"image":        s.image,
	}).Debug("Stress workload started")
	return nil
}

func (s *Stress) Exit(ctx context.Context) error {
	if s.cli == nil {
		return nil
	}
	defer func() {
		s.cli.Close()
		s.cli = nil
		s.containerID = ""
	}()

	if s.containerID == "" {
		return nil
	}
	removeOpts := types.ContainerRemoveOptions{Force: true, RemoveVolumes: true}
	if err := s.cli.ContainerRemove(ctx, s.containerID, removeOpts); err != nil {
		return fmt.Errorf("failed to remove stress container: %w", err)
	}
	return nil
}
