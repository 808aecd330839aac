package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/devices"

	"pplxbridge/internal/config"
	"pplxbridge/internal/profile"
)

const chromeImage = "browserless/chrome:latest"

// DockerLauncher runs Chrome inside a browserless/chrome container with the
// profile directory bind-mounted, for hosts without a display. Sessions
// connect over CDP; stealth still applies at the page level, but headed
// mode is unavailable, so challenge-heavy deployments should prefer the
// local launcher.
type DockerLauncher struct {
	cli      *client.Client
	cfg      *config.Config
	profiles *profile.Manager
}

func NewDockerLauncher(cfg *config.Config, profiles *profile.Manager) (*DockerLauncher, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &DockerLauncher{cli: cli, cfg: cfg, profiles: profiles}, nil
}

func (d *DockerLauncher) Mode() string { return "docker" }

// EnsureImage pulls the Chrome image if it is not present locally.
func (d *DockerLauncher) EnsureImage(ctx context.Context) error {
	images, err := d.cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return err
	}
	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == chromeImage {
				return nil
			}
		}
	}

	log.Info("browser: pulling image", "image", chromeImage)
	reader, err := d.cli.ImagePull(ctx, chromeImage, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image: %w", err)
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

func (d *DockerLauncher) Launch(ctx context.Context) (*Instance, error) {
	if err := d.profiles.Prepare(); err != nil {
		return nil, fmt.Errorf("prepare profile: %w", err)
	}

	containerConfig := &container.Config{
		Image: chromeImage,
		Labels: map[string]string{
			"managed-by": "pplxbridge",
		},
		Env: []string{
			"CONNECTION_TIMEOUT=-1",
			"MAX_CONCURRENT_SESSIONS=1",
			"PREBOOT_CHROME=true",
			"KEEP_ALIVE=true",
		},
		ExposedPorts: nat.PortSet{
			"3000/tcp": struct{}{},
		},
	}
	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			"3000/tcp": []nat.PortBinding{
				{HostIP: "127.0.0.1", HostPort: "0"},
			},
		},
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: d.profiles.Dir(),
				Target: "/data",
			},
		},
	}

	resp, err := d.cli.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("create container: %w", err)
	}
	if err := d.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		d.removeContainer(resp.ID)
		return nil, fmt.Errorf("start container: %w", err)
	}

	inspect, err := d.cli.ContainerInspect(ctx, resp.ID)
	if err != nil {
		d.removeContainer(resp.ID)
		return nil, fmt.Errorf("inspect container: %w", err)
	}
	bindings := inspect.NetworkSettings.Ports["3000/tcp"]
	if len(bindings) == 0 {
		d.removeContainer(resp.ID)
		return nil, fmt.Errorf("container exposed no CDP port")
	}
	port := bindings[0].HostPort

	if err := waitForCDPReady(port); err != nil {
		d.removeContainer(resp.ID)
		return nil, fmt.Errorf("browser never became ready: %w", err)
	}

	connectURL := fmt.Sprintf("ws://127.0.0.1:%s", port)
	browser := rod.New().Context(ctx).ControlURL(connectURL)
	if err := browser.Connect(); err != nil {
		d.removeContainer(resp.ID)
		return nil, fmt.Errorf("connect to container browser: %w", err)
	}
	browser.DefaultDevice(devices.Clear)

	page, err := preparePage(browser, d.cfg)
	if err != nil {
		browser.Close()
		d.removeContainer(resp.ID)
		return nil, fmt.Errorf("prepare page: %w", err)
	}

	log.Info("browser: launched", "mode", "docker", "container", resp.ID[:12], "port", port)

	containerID := resp.ID
	return &Instance{
		Browser:    browser,
		Page:       page,
		ConnectURL: connectURL,
		CloseFn: func() {
			if err := browser.Close(); err != nil {
				log.Warn("browser: close failed", "error", err)
			}
			d.removeContainer(containerID)
		},
	}, nil
}

func (d *DockerLauncher) removeContainer(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	timeout := 10
	if err := d.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout}); err != nil {
		log.Warn("browser: container stop failed", "container", id[:12], "error", err)
	}
	if err := d.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		log.Warn("browser: container remove failed", "container", id[:12], "error", err)
	}
}

// Close releases the docker client itself.
func (d *DockerLauncher) Close() error {
	return d.cli.Close()
}

// waitForCDPReady polls the container's /json/version endpoint until the
// debugger answers.
func waitForCDPReady(port string) error {
	url := fmt.Sprintf("http://127.0.0.1:%s/json/version", port)
	const maxRetries = 20

	for i := 0; i < maxRetries; i++ {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				// WebSocket endpoint trails the HTTP one slightly
				time.Sleep(500 * time.Millisecond)
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("CDP endpoint not ready after %d retries", maxRetries)
}
