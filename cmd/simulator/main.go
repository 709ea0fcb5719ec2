package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global flags
	apiURL := "http://localhost:8000"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "flow":
		flowCmd(apiURL, args)
	case "populate":
		populateCmd(apiURL, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Account Simulator - Development tool for exercising the accounts API

USAGE:
  simulator <command> [options]

COMMANDS:
  flow      Register a user and walk the whole session lifecycle
  populate  Register fake users
  help      Show this help message

ENVIRONMENT:
  API_URL   Backend API URL (default: http://localhost:8000)

EXAMPLES:
  # Register, login, refresh, change password and logout
  simulator flow

  # Same, with a cover image on registration
  simulator flow --cover

  # Register 5 users and print their credentials
  simulator populate --count=5`)
}

func flowCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("flow", flag.ExitOnError)
	withCover := fs.Bool("cover", false, "Upload a cover image on registration")
	password := fs.String("password", "testpassword123", "Password for the new user")
	fs.Parse(args)

	client := NewAPIClient(apiURL)

	fmt.Println("=== Account Simulator: Session Flow ===")
	fmt.Println()

	// 1. Register
	fmt.Print("Registering user... ")
	user, err := client.RegisterUser("flowuser", *password, *withCover)
	if err != nil {
		fail(err)
	}
	fmt.Printf("OK (user: %s)\n", user.Username)
	fmt.Printf("  Avatar:      %s\n", user.Avatar)
	if user.CoverImage != "" {
		fmt.Printf("  Cover image: %s\n", user.CoverImage)
	}

	// 2. Login
	fmt.Print("Logging in... ")
	session, err := client.Login(user.Username, *password)
	if err != nil {
		fail(err)
	}
	fmt.Println("OK")

	// 3. Fetch current user
	fmt.Print("Fetching current user... ")
	if _, err := client.CurrentUser(session.AccessToken); err != nil {
		fail(err)
	}
	fmt.Println("OK")

	// 4. Rotate
	fmt.Print("Refreshing session... ")
	rotated, err := client.Refresh(session.RefreshToken)
	if err != nil {
		fail(err)
	}
	fmt.Println("OK")

	fmt.Print("Replaying spent refresh token... ")
	if _, err := client.Refresh(session.RefreshToken); err == nil {
		fail(fmt.Errorf("spent refresh token was accepted"))
	}
	fmt.Println("OK (rejected)")

	// 5. Change password
	newPassword := *password + "-changed"
	fmt.Print("Changing password... ")
	if err := client.ChangePassword(rotated.AccessToken, *password, newPassword); err != nil {
		fail(err)
	}
	fmt.Println("OK")

	// 6. Logout
	fmt.Print("Logging out... ")
	if err := client.Logout(rotated.AccessToken); err != nil {
		fail(err)
	}
	fmt.Println("OK")

	fmt.Print("Refreshing after logout... ")
	if _, err := client.Refresh(rotated.RefreshToken); err == nil {
		fail(fmt.Errorf("refresh after logout was accepted"))
	}
	fmt.Println("OK (rejected)")

	// Print summary
	fmt.Println()
	fmt.Println("=========================================")
	fmt.Println("  SESSION FLOW COMPLETE")
	fmt.Println("=========================================")
	fmt.Println()
	fmt.Printf("  Username: %s\n", user.Username)
	fmt.Printf("  Password: %s\n", newPassword)
	fmt.Println()
}

func populateCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("populate", flag.ExitOnError)
	count := fs.Int("count", 5, "Number of fake users to create")
	password := fs.String("password", "testpassword123", "Password for every user")
	fs.Parse(args)

	if *count < 1 || *count > 100 {
		fmt.Println("Error: --count must be between 1 and 100")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)

	fmt.Printf("Registering %d users:\n", *count)
	for i := 0; i < *count; i++ {
		user, err := client.RegisterUser(fmt.Sprintf("Player%d", i+1), *password, i%2 == 0)
		if err != nil {
			fmt.Printf("  [%d/%d] FAILED to create user: %v\n", i+1, *count, err)
			os.Exit(1)
		}
		fmt.Printf("  [%d/%d] %s (%s)\n", i+1, *count, user.Username, user.Email)
	}

	fmt.Println()
	fmt.Printf("All users share the password %q\n", *password)
}

func fail(err error) {
	fmt.Printf("FAILED\n  Error: %v\n", err)
	os.Exit(1)
}
