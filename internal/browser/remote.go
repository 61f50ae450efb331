package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"go.uber.org/zap"
)

const cdpPort = "9222/tcp"

// RemoteLauncher runs the shared browser process as a headless-shell
// container instead of exec'ing Chrome on the host. Useful where the service
// box has no Chrome install, or to pin the exact browser build.
type RemoteLauncher struct {
	cli    *client.Client
	image  string
	logger *zap.Logger
}

// RemoteBrowser is a running browser container and its CDP endpoint.
type RemoteBrowser struct {
	launcher    *RemoteLauncher
	ContainerID string
	ConnectURL  string
	Port        string
}

// NewRemoteLauncher creates a launcher against the local Docker daemon.
func NewRemoteLauncher(imageRef string, logger *zap.Logger) (*RemoteLauncher, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &RemoteLauncher{
		cli:    cli,
		image:  imageRef,
		logger: logger.Named("remote_browser"),
	}, nil
}

// Launch starts a browser container, waits for its CDP endpoint to answer,
// and returns the connection details.
func (l *RemoteLauncher) Launch(ctx context.Context) (*RemoteBrowser, error) {
	if err := l.ensureImage(ctx); err != nil {
		return nil, err
	}

	containerConfig := &container.Config{
		Image: l.image,
		Labels: map[string]string{
			"managed-by": "grocery-autocart",
		},
		ExposedPorts: nat.PortSet{
			cdpPort: struct{}{},
		},
	}
	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			cdpPort: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: "0"}},
		},
		AutoRemove: false,
	}

	resp, err := l.cli.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create browser container: %w", err)
	}

	if err := l.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start browser container: %w", err)
	}

	inspect, err := l.cli.ContainerInspect(ctx, resp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect browser container: %w", err)
	}
	bindings := inspect.NetworkSettings.Ports[cdpPort]
	if len(bindings) == 0 {
		return nil, fmt.Errorf("browser container %s exposed no CDP port", resp.ID[:12])
	}
	port := bindings[0].HostPort

	if err := l.waitForBrowserReady(ctx, port); err != nil {
		return nil, fmt.Errorf("browser container failed to become ready: %w", err)
	}

	l.logger.Info("browser container running",
		zap.String("container_id", resp.ID[:12]),
		zap.String("port", port))

	return &RemoteBrowser{
		launcher:    l,
		ContainerID: resp.ID,
		ConnectURL:  fmt.Sprintf("ws://127.0.0.1:%s", port),
		Port:        port,
	}, nil
}

func (l *RemoteLauncher) ensureImage(ctx context.Context) error {
	images, err := l.cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return fmt.Errorf("failed to list images: %w", err)
	}
	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == l.image {
				return nil
			}
		}
	}

	l.logger.Info("pulling browser image", zap.String("image", l.image))
	reader, err := l.cli.ImagePull(ctx, l.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", l.image, err)
	}
	defer reader.Close()
	_, err = io.Copy(io.Discard, reader)
	return err
}

// waitForBrowserReady polls the DevTools version endpoint until it answers.
func (l *RemoteLauncher) waitForBrowserReady(ctx context.Context, port string) error {
	url := fmt.Sprintf("http://127.0.0.1:%s/json/version", port)
	const maxRetries = 20

	for i := 0; i < maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return fmt.Errorf("no response from %s after %d attempts", url, maxRetries)
}

// Close releases the Docker client.
func (l *RemoteLauncher) Close() error {
	return l.cli.Close()
}

// Stop stops and removes the container and releases the Docker client.
func (b *RemoteBrowser) Stop(ctx context.Context) error {
	timeout := 10
	if err := b.launcher.cli.ContainerStop(ctx, b.ContainerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop browser container: %w", err)
	}
	if err := b.launcher.cli.ContainerRemove(ctx, b.ContainerID, container.RemoveOptions{}); err != nil {
		return fmt.Errorf("failed to remove browser container: %w", err)
	}
	return b.launcher.Close()
}
