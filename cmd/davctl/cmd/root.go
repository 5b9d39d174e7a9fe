package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/davmount/authcache"
	"github.com/xxxsen/davmount/config"
	"github.com/xxxsen/davmount/davops"
	"github.com/xxxsen/davmount/downloadq"
	"github.com/xxxsen/davmount/proxyconf"
	"github.com/xxxsen/davmount/streampool"
	"github.com/xxxsen/davmount/tlstrust"
	"github.com/xxxsen/davmount/transact"
)

const (
	defaultConfigFileEnv = "DAVCTL_CONFIG"
)

var cmds []CreateFunc

type Context struct {
	Client *davops.Client
	Queue  *downloadq.Queue
	Config *config.Config
}

type CreateFunc func(ctx *Context) *cobra.Command

func register(cr CreateFunc) {
	cmds = append(cmds, cr)
}

func initContext(ctx *Context, cfgs []string) error {
	var c *config.Config
	var err error
	for _, cfg := range cfgs {
		if len(cfg) == 0 {
			continue
		}
		c, err = config.Parse(cfg)
		if err == nil {
			break
		}
	}
	if c == nil {
		return fmt.Errorf("no valid config file found, last err:%w", err)
	}
	ctx.Config = c
	logger.Init("", c.LogInfo.Level, 0, 0, 0, true)

	pool := streampool.New(c.RequestThreads)
	var serverCred, proxyCred *authcache.Credentials
	if c.ServerAuth != nil {
		serverCred = &authcache.Credentials{Username: c.ServerAuth.Username, Password: c.ServerAuth.Password}
	}
	if c.ProxyAuth != nil {
		proxyCred = &authcache.Credentials{Username: c.ProxyAuth.Username, Password: c.ProxyAuth.Password}
	}
	auth, err := authcache.New(serverCred, proxyCred)
	if err != nil {
		return fmt.Errorf("init auth cache failed, err:%w", err)
	}
	proxies := proxyconf.NewStore(proxyconf.StaticSource{Fixed: proxyconf.Settings{
		HTTPEnabled:  c.Proxy.HTTPEnable,
		HTTPHost:     c.Proxy.HTTPHost,
		HTTPPort:     c.Proxy.HTTPPort,
		HTTPSEnabled: c.Proxy.HTTPSEnable,
		HTTPSHost:    c.Proxy.HTTPSHost,
		HTTPSPort:    c.Proxy.HTTPSPort,
	}}, auth.InvalidateProxy)
	if err := proxies.Refresh(context.Background()); err != nil {
		return fmt.Errorf("load proxy settings failed, err:%w", err)
	}

	// a cli tool has nobody to click a certificate prompt
	engine := transact.New(pool, proxies, tlstrust.NewStore(), tlstrust.RefuseAllConfirmer{}, auth,
		transact.WithUserAgent(transact.BuildUserAgent(c.UserAgent, c.Mirrored)),
		transact.WithSourceID(c.SourceID),
		transact.WithSuppressUI(true))
	queue := downloadq.New(engine, 1)
	engine.SetEnqueue(queue.Enqueue)
	ctx.Queue = queue

	cl, err := davops.New(engine, c.ServerURL,
		davops.WithLockTimeout(c.LockTimeoutSecs),
		davops.WithValidWindow(time.Duration(c.ValidWindowSecs)*time.Second))
	if err != nil {
		return fmt.Errorf("init client failed, err:%w", err)
	}
	ctx.Client = cl
	return nil
}

func NewRoot() *cobra.Command {
	var configFile string
	ctx := &Context{}
	var rootCmd = &cobra.Command{
		Use:   "davctl",
		Short: "WebDAV client CLI tool",
	}
	for _, cr := range cmds {
		rootCmd.AddCommand(cr(ctx))
	}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		envConfigFile, _ := os.LookupEnv(defaultConfigFileEnv)
		return initContext(ctx, []string{configFile, "/etc/davctl/davctl_config.json", envConfigFile})
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file")
	return rootCmd
}
