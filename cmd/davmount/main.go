package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/xxxsen/davmount/attrcache"
	"github.com/xxxsen/davmount/authcache"
	"github.com/xxxsen/davmount/config"
	"github.com/xxxsen/davmount/davops"
	"github.com/xxxsen/davmount/downloadq"
	"github.com/xxxsen/davmount/proxyconf"
	"github.com/xxxsen/davmount/streampool"
	"github.com/xxxsen/davmount/tlstrust"
	"github.com/xxxsen/davmount/transact"

	"github.com/dustin/go-humanize"
	"github.com/xxxsen/common/logger"
	"go.uber.org/zap"
)

var file = flag.String("config", "./config.json", "config file path")

func main() {
	flag.Parse()

	c, err := config.Parse(*file)
	if err != nil {
		panic(err)
	}
	logitem := c.LogInfo
	logger := logger.Init(logitem.File, logitem.Level, int(logitem.FileCount), int(logitem.FileSize), int(logitem.KeepDays), logitem.Console)
	logger.Info("recv config", zap.String("server", c.ServerURL), zap.Int("request_threads", c.RequestThreads))

	cl, engine, queue, err := buildClient(c)
	if err != nil {
		logger.Fatal("init webdav client fail", zap.Error(err))
	}
	defer queue.Close()

	ctx := context.Background()
	info, err := cl.Mount(ctx, 0)
	if err != nil {
		logger.Fatal("mount handshake fail", zap.Error(err))
	}
	logger.Info("server is mountable",
		zap.Int("dav_level", info.DAVLevel),
		zap.Bool("read_only", info.ReadOnly))

	fs, err := cl.StatFS(ctx, 0, nil)
	if err != nil {
		logger.Warn("statfs fail", zap.Error(err))
	} else if fs.Quota > 0 {
		logger.Info("volume quota",
			zap.String("total", humanize.IBytes(fs.Quota)),
			zap.String("used", humanize.IBytes(fs.QuotaUsed)))
	}
	logger.Info("connection state", zap.Bool("down", engine.Down()))
}

func buildClient(c *config.Config) (*davops.Client, *transact.Engine, *downloadq.Queue, error) {
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
		return nil, nil, nil, fmt.Errorf("init auth cache failed, err:%w", err)
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
		return nil, nil, nil, fmt.Errorf("load proxy settings failed, err:%w", err)
	}

	var confirmer tlstrust.IConfirmer = tlstrust.RefuseAllConfirmer{}
	if len(c.TrustHelper) > 0 {
		confirmer = &tlstrust.HelperConfirmer{Path: c.TrustHelper}
	}

	engine := transact.New(pool, proxies, tlstrust.NewStore(), confirmer, auth,
		transact.WithUserAgent(transact.BuildUserAgent(c.UserAgent, c.Mirrored)),
		transact.WithSourceID(c.SourceID),
		transact.WithFirstReadLen(c.FirstReadLen),
		transact.WithSuppressUI(c.SuppressUI))
	queue := downloadq.New(engine, 1)
	engine.SetEnqueue(queue.Enqueue)

	opts := []davops.Option{
		davops.WithLockTimeout(c.LockTimeoutSecs),
		davops.WithValidWindow(time.Duration(c.ValidWindowSecs) * time.Second),
	}
	if c.EnableAttrCache {
		attrs, err := attrcache.New()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("init attr cache failed, err:%w", err)
		}
		opts = append(opts, davops.WithAttrCache(attrs))
	}
	cl, err := davops.New(engine, c.ServerURL, opts...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init client failed, err:%w", err)
	}
	return cl, engine, queue, nil
}
