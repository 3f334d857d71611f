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

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/basenana/nanafiles/config"
)

var overwrite bool

func init() {
	initCmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing config file")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "generate local configuration",
	Run: func(cmd *cobra.Command, args []string) {
		if err := initDefaultConfig(WorkSpace, overwrite); err != nil {
			fmt.Println(err.Error())
			return
		}
		fmt.Println("Generate local configuration succeed")
	},
}

func initDefaultConfig(workspace string, overwrite bool) error {
	fmt.Printf("Workspace: %s\n", workspace)
	if err := mkdir(workspace); err != nil {
		return fmt.Errorf("init workspace failed: %s", err)
	}

	configPath := localConfigFilePath(workspace)
	if _, err := os.Stat(configPath); err == nil && !overwrite {
		return fmt.Errorf("config %s existed, use --overwrite to replace it", configPath)
	}

	conf, err := config.DefaultConfig(workspace)
	if err != nil {
		return fmt.Errorf("build default config failed: %s", err)
	}
	conf.Api.Pprof = true

	fmt.Printf("Workspace Database File: %s\n", conf.Meta.Path)
	fmt.Printf("Workspace Config: %s\n", configPath)
	raw, _ := json.MarshalIndent(conf, "", "    ")
	if err := os.WriteFile(configPath, raw, 0644); err != nil {
		return fmt.Errorf("wirteback config file failed: %s", err)
	}
	return nil
}

func mkdir(path string) error {
	d, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	if err != nil && os.IsNotExist(err) {
		return os.MkdirAll(path, 0755)
	}

	if d.IsDir() {
		return nil
	}

	return fmt.Errorf("%s not dir", path)
}
