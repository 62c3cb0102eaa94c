package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noteq/noteq/pkg/account"
)

var (
	loginEmail    string
	registerName  string
	registerEmail string
)

func ask(ctx context.Context, value, prompt string) string {
	if value != "" {
		return value
	}
	answer, err := terminal.Prompt(ctx, prompt, "")
	if err != nil {
		fatal("Error reading input", err)
	}
	return answer
}

func askPassword(ctx context.Context, prompt string) string {
	pw, err := terminal.Password(ctx, prompt)
	if err != nil {
		fatal("Error reading password", err)
	}
	return pw
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and remember the session",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		email := ask(ctx, loginEmail, "Email")
		password := askPassword(ctx, "Password")
		sess, err := app.Account.Login(ctx, email, password)
		if err != nil {
			fatal("Login failed", err)
		}
		fmt.Printf("Logged in as user %s\n", sess.UserID)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the session and every cached value",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		if err := app.Account.Logout(ctx); err != nil {
			fatal("Logout failed", err)
		}
		fmt.Println("Logged out")
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		name := ask(ctx, registerName, "Username")
		email := ask(ctx, registerEmail, "Email")
		password := askPassword(ctx, "Password")
		if confirm := askPassword(ctx, "Repeat password"); confirm != password {
			fatal("Registration failed", fmt.Errorf("passwords do not match"))
		}
		if err := app.Account.Register(ctx, name, email, password); err != nil {
			fatal("Registration failed", err)
		}
		fmt.Println("Account created, you can now log in")
	},
}

var forgotCmd = &cobra.Command{
	Use:   "forgot-password <email>",
	Short: "Send a password reset link",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		if err := app.Account.ForgotPassword(ctx, args[0]); err != nil {
			fatal("Request failed", err)
		}
		fmt.Println("If the address is registered, a reset link is on its way")
	},
}

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Change the password of the logged in user",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		oldPassword := askPassword(ctx, "Current password")
		newPassword := askPassword(ctx, "New password")
		if err := account.ValidatePasswordChange(oldPassword, newPassword); err != nil {
			fatal("Password not changed", err)
		}
		if err := app.Account.ChangePassword(ctx, oldPassword, newPassword); err != nil {
			fatal("Password not changed", err)
		}
		fmt.Println("Password changed")
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset-password <uid> <token>",
	Short: "Set a new password with the link sent by email",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		app, ctx := openApp(cmd)
		defer app.Close()

		newPassword := askPassword(ctx, "New password")
		if err := app.Account.ResetFromEmail(ctx, args[0], args[1], newPassword); err != nil {
			fatal("Password not reset", err)
		}
		fmt.Println("Password reset, you can now log in")
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	registerCmd.Flags().StringVar(&registerName, "username", "", "Username")
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "Account email")
	rootCmd.AddCommand(loginCmd, logoutCmd, registerCmd, forgotCmd, passwordCmd, resetCmd)
}
