/*
 Copyright 2023 NanaFS Authors.

 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package apps

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/basenana/nanafiles/cmd/apps/apis/rest"
	v1 "github.com/basenana/nanafiles/cmd/apps/apis/rest/v1"
	configapp "github.com/basenana/nanafiles/cmd/apps/config"
	"github.com/basenana/nanafiles/config"
	"github.com/basenana/nanafiles/pkg/backend/local"
	"github.com/basenana/nanafiles/pkg/changes"
	"github.com/basenana/nanafiles/pkg/events"
	"github.com/basenana/nanafiles/pkg/files"
	"github.com/basenana/nanafiles/pkg/loop"
	"github.com/basenana/nanafiles/pkg/metastore"
	"github.com/basenana/nanafiles/pkg/tags"
	"github.com/basenana/nanafiles/pkg/types"
	"github.com/basenana/nanafiles/utils"
	"github.com/basenana/nanafiles/utils/logger"
	"github.com/basenana/nanafiles/utils/metrics"
)

func init() {
	RootCmd.AddCommand(daemonCmd)
	RootCmd.AddCommand(inspectCmd)
	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(configapp.RunCmd)
}

var RootCmd = &cobra.Command{
	Use:   "nanafiles",
	Short: "NanaFiles metadata cache",
	Long:  `File metadata cache and attribute readiness engine for local file managers.`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var (
	inspectAttrs   string
	inspectTimeout time.Duration
)

func init() {
	daemonCmd.Flags().StringVar(&config.FilePath, "config", path.Join(config.LocalUserPath(), config.DefaultConfigBase), "nanafiles config file")
	inspectCmd.Flags().StringVar(&config.FilePath, "config", "", "nanafiles config file, an in-memory store is used when empty")
	inspectCmd.Flags().StringVar(&inspectAttrs, "attrs", "all", "attributes to load, joined by '|'")
	inspectCmd.Flags().DurationVar(&inspectTimeout, "timeout", time.Minute, "give up loading after")
}

var daemonCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start server service",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			panic(err)
		}

		if cfg.Debug {
			logger.SetDebug(cfg.Debug)
		}
		if err = metrics.InitSentry(cfg.SentryDSN); err != nil {
			panic(err)
		}

		stop := utils.HandleTerminalSignal()
		if err = run(cfg, stop); err != nil {
			panic(err)
		}
	},
}

func loadConfig() (config.Config, error) {
	cfg, err := config.NewConfigLoader().GetConfig()
	if err != nil {
		return cfg, err
	}
	if err = config.Verify(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

type engine struct {
	meta     metastore.Meta
	tags     *tags.Manager
	queue    *changes.Queue
	registry *files.Registry
}

func newEngine(ctx context.Context, cfg config.Config) (*engine, error) {
	meta, err := metastore.NewMetaStorage(cfg.Meta.Type, cfg.Meta)
	if err != nil {
		return nil, err
	}

	e := &engine{meta: meta}
	e.tags, err = tags.NewManager(ctx, meta, tags.WithStarredChanged(func(uri string) {
		// may run on the main loop
		go func() {
			_ = e.registry.Invalidate(ctx, uri, types.AttrExtensionInfo)
		}()
	}))
	if err != nil {
		_ = meta.Close()
		return nil, err
	}

	e.queue = changes.NewQueue(changes.WithLocationIndex(e.tags), changes.WithMaxChunk(cfg.Queue.MaxChunk))

	backendOpts := []local.Option{
		local.WithMetadataStore(meta),
		local.WithProgressEvery(cfg.Fetch.DeepCountProgress),
		local.WithContentDetection(cfg.Fetch.SniffContent),
		local.WithOwnerCache(cfg.Cache.OwnerSize, cfg.OwnerExpire()),
	}
	if cfg.Thumbnail.Dir != "" {
		backendOpts = append(backendOpts, local.WithThumbnailDir(cfg.Thumbnail.Dir))
	}

	e.registry = files.NewRegistry(local.NewLocal(backendOpts...), loop.New(),
		files.WithMetadataStore(meta),
		files.WithExtensionProviders(e.tags),
		files.WithLocationIndex(e.tags),
		files.WithParallel(cfg.Fetch.Parallel),
		files.WithQueue(e.queue, cfg.ConsumeInterval()),
		files.WithConsumeAll(cfg.Queue.ConsumeAll),
		files.WithFreeSpaceTTL(cfg.FreeSpaceTTL()),
	)
	return e, nil
}

func run(cfg config.Config, stopCh chan struct{}) error {
	log := logger.NewLogger("nanafiles")
	log.Infow("starting", "version", config.VersionInfo().Version())

	ctx, canF := context.WithCancel(context.Background())
	defer canF()

	e, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.meta.Close()

	monitor, err := local.NewMonitor(e.queue, cfg.RenameWindow())
	if err != nil {
		return err
	}
	for _, p := range cfg.Watch.Paths {
		if err = monitor.Watch(local.PathToURI(p)); err != nil {
			log.Warnw("watch path failed", "path", p, "err", err)
		}
	}
	go monitor.Run(ctx)
	go e.registry.Run(ctx)

	if cfg.Api.Enable {
		recorder := events.NewRecorder(0)
		defer recorder.Close()
		server, err := rest.New(v1.Depends{Registry: e.registry, Tags: e.tags, Queue: e.queue, Events: recorder}, cfg.Api)
		if err != nil {
			return err
		}
		go server.Run(stopCh)
	}

	log.Infow("started", "watching", monitor.WatchList())
	<-stopCh
	canF()
	time.Sleep(time.Second)
	log.Info("stopped")
	return nil
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <path>",
	Short: "Load the attributes of one file and print them",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Config{}
		if config.FilePath != "" {
			loaded, err := loadConfig()
			if err != nil {
				panic(err)
			}
			cfg = loaded
		} else {
			cfg.Fetch.SniffContent = true
			if err := config.Verify(&cfg); err != nil {
				panic(err)
			}
		}

		snapshot, err := inspect(cfg, args[0], types.ParseAttributes(inspectAttrs), inspectTimeout)
		if err != nil {
			fmt.Printf("inspect %s failed: %s\n", args[0], err)
			return
		}
		fmt.Print(utils.Dump(snapshot))
	},
}

func inspect(cfg config.Config, p string, attrs types.Attributes, timeout time.Duration) (files.Snapshot, error) {
	ctx, canF := context.WithCancel(context.Background())
	defer canF()

	e, err := newEngine(ctx, cfg)
	if err != nil {
		return files.Snapshot{}, err
	}
	defer e.meta.Close()
	go e.registry.Run(ctx)

	abs, err := filepath.Abs(p)
	if err != nil {
		return files.Snapshot{}, err
	}

	loadCtx, loadCanF := context.WithTimeout(ctx, timeout)
	defer loadCanF()
	return e.registry.Load(loadCtx, local.PathToURI(abs), attrs)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "View version information",
	Run: func(cmd *cobra.Command, args []string) {
		vInfo := config.VersionInfo()
		fmt.Printf("Version: %s\n", vInfo.Version())
		fmt.Printf("GitCommit: %s\n", vInfo.Git)
	},
}
