// admintoken 为管理端签发 JWT（本服务不提供登录接口）
package main

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	"shift-handover/config"
	"shift-handover/pkg/jwt"
)

var employeeCodePattern = regexp.MustCompile(`^[0-9]{6}$`)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath   string
		employeeCode string
		role         string
		ttl          time.Duration
	)

	cmd := &cobra.Command{
		Use:   "admintoken",
		Short: "签发管理端访问令牌",
		Long:  "读取与服务端相同的配置（auth.jwt_secret），为指定工号签发管理端 Access Token。",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !employeeCodePattern.MatchString(employeeCode) {
				return fmt.Errorf("工号必须为 6 位数字: %q", employeeCode)
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			token, err := jwt.NewManager(&cfg.Auth).GenerateAccessToken(employeeCode, role, ttl)
			if err != nil {
				return fmt.Errorf("签发失败: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "配置文件路径")
	cmd.Flags().StringVar(&employeeCode, "employee-code", "", "管理员工号（6 位数字）")
	cmd.Flags().StringVar(&role, "role", "admin", "角色")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "有效期，0 表示使用 auth.access_token_ttl")
	_ = cmd.MarkFlagRequired("employee-code")

	return cmd
}
