package cli

import (
	"fmt"

	"github.com/rcliao/babbly/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the baby profile",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the profile",
		Run:   runProfileShow,
	})

	set := &cobra.Command{
		Use:   "set",
		Short: "Update profile fields",
		Run:   runProfileSet,
	}
	set.Flags().String("name", "", "Baby's name")
	set.Flags().String("dob", "", "Date of birth (YYYY-MM-DD)")
	set.Flags().Bool("onboarded", false, "Mark onboarding complete")
	cmd.AddCommand(set)

	RootCmd.AddCommand(cmd)
}

func runProfileShow(cmd *cobra.Command, args []string) {
	a := openApp(cmd.Context())
	defer a.Close()

	p := a.events.Profile()
	if textOutput() {
		fmt.Printf("%s  born %s  onboarded: %t\n", p.Name, p.DOB, p.OnboardingComplete)
		return
	}
	printJSON(p)
}

func runProfileSet(cmd *cobra.Command, args []string) {
	var patch model.ProfilePatch
	if cmd.Flags().Changed("name") {
		name, _ := cmd.Flags().GetString("name")
		patch.Name = &name
	}
	if cmd.Flags().Changed("dob") {
		dob, _ := cmd.Flags().GetString("dob")
		patch.DOB = &dob
	}
	if cmd.Flags().Changed("onboarded") {
		done, _ := cmd.Flags().GetBool("onboarded")
		patch.OnboardingComplete = &done
	}

	a := openApp(cmd.Context())
	defer a.Close()

	p, err := a.events.UpdateProfile(cmd.Context(), patch)
	if err != nil {
		exitErr("profile set", err)
	}
	printJSON(p)
}
