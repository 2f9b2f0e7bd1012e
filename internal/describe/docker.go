package describe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	dockerclient "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// DefaultImage ships a git binary as its entrypoint.
const DefaultImage = "alpine/git:latest"

// repoMount is where the source tree appears inside the container.
const repoMount = "/repo"

// containerAPI is the subset of the Docker client used by Docker.
// *dockerclient.Client satisfies it.
type containerAPI interface {
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	Close() error
}

// DockerConfig holds settings for the container backend.
type DockerConfig struct {
	// Image is a container image whose entrypoint can run git.
	// Default: alpine/git:latest
	Image string

	// Dir is the host repository directory bind-mounted into the
	// container.  Empty means the process working directory.
	Dir string
}

// Docker runs the describe query with git inside a throw-away container,
// for hosts that have a Docker daemon but no git binary.
type Docker struct {
	image  string
	dir    string
	logger *slog.Logger

	// newClient is swapped out in tests.
	newClient func() (containerAPI, error)
}

// Compile-time check that Docker satisfies the Describer interface.
var _ Describer = (*Docker)(nil)

// NewDocker creates a container-backed Describer.  No connection to the
// daemon is made until Describe is called, so a missing daemon surfaces
// as a query failure rather than a construction error.
func NewDocker(cfg DockerConfig, logger *slog.Logger) *Docker {
	if cfg.Image == "" {
		cfg.Image = DefaultImage
	}
	return &Docker{
		image:  cfg.Image,
		dir:    cfg.Dir,
		logger: logger,
		newClient: func() (containerAPI, error) {
			return dockerclient.NewClientWithOpts(
				dockerclient.FromEnv,
				dockerclient.WithAPIVersionNegotiation(),
			)
		},
	}
}

// Describe implements Describer.
func (d *Docker) Describe(ctx context.Context) (string, error) {
	dir, err := d.hostDir()
	if err != nil {
		return "", err
	}

	client, err := d.newClient()
	if err != nil {
		return "", fmt.Errorf("docker client: %w", err)
	}
	defer client.Close()

	d.logger.Debug("pulling describe image", slog.String("image", d.image))

	pull, err := client.ImagePull(ctx, d.image, image.PullOptions{})
	if err != nil {
		return "", fmt.Errorf("image pull %s: %w", d.image, err)
	}
	// Drain and close the pull stream so the image is fully downloaded.
	if _, err := io.Copy(io.Discard, pull); err != nil {
		pull.Close()
		return "", fmt.Errorf("reading image pull response: %w", err)
	}
	if err := pull.Close(); err != nil {
		return "", fmt.Errorf("closing image pull stream: %w", err)
	}

	name := "coreversion-describe-" + uuid.NewString()
	cmd := append([]string{"-c", "safe.directory=" + repoMount}, DescribeArgs...)

	resp, err := client.ContainerCreate(
		ctx,
		&container.Config{
			Image:      d.image,
			Entrypoint: []string{"git"},
			Cmd:        cmd,
			WorkingDir: repoMount,
		},
		&container.HostConfig{
			Mounts: []mount.Mount{{
				Type:     mount.TypeBind,
				Source:   dir,
				Target:   repoMount,
				ReadOnly: true,
			}},
		},
		nil, // networking config
		nil, // platform
		name,
	)
	if err != nil {
		return "", fmt.Errorf("container create %s: %w", name, err)
	}
	defer func() {
		if err := client.ContainerRemove(context.WithoutCancel(ctx), resp.ID, container.RemoveOptions{Force: true}); err != nil {
			d.logger.Warn("failed to remove describe container",
				slog.String("containerID", resp.ID),
				slog.String("error", err.Error()),
			)
		}
	}()

	if err := client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("container start %s: %w", name, err)
	}

	exitCode, err := wait(ctx, client, resp.ID)
	if err != nil {
		return "", err
	}

	logs, err := client.ContainerLogs(ctx, resp.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", fmt.Errorf("container logs %s: %w", name, err)
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return "", fmt.Errorf("reading container output: %w", err)
	}

	if exitCode != 0 {
		return "", fmt.Errorf("git describe in %s exited with status %d: %s",
			d.image, exitCode, strings.TrimSpace(stderr.String()))
	}
	return decode(stdout.Bytes())
}

// hostDir returns the absolute directory to bind-mount.
func (d *Docker) hostDir() (string, error) {
	if d.dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(d.dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", d.dir, err)
	}
	return abs, nil
}

// wait blocks until the container stops and returns its exit status.
func wait(ctx context.Context, client containerAPI, id string) (int64, error) {
	statusCh, errCh := client.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return 0, fmt.Errorf("container wait %s: %w", id, err)
	case st := <-statusCh:
		if st.Error != nil && st.Error.Message != "" {
			return 0, fmt.Errorf("container wait %s: %s", id, st.Error.Message)
		}
		return st.StatusCode, nil
	}
}
