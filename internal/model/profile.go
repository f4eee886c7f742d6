package model

import "encoding/json"

// DefaultProfileID identifies the single profile of a local store.
const DefaultProfileID = "default-baby"

// Profile is the tracked child's identity record.
type Profile struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	DOB                string `json:"dob"`
	OnboardingComplete bool   `json:"onboardingComplete"`
}

// DefaultProfile is the profile created on first run.
func DefaultProfile() Profile {
	return Profile{ID: DefaultProfileID}
}

// UnmarshalJSON also accepts the misspelled onboadingComplete key written by
// earlier releases.
func (p *Profile) UnmarshalJSON(b []byte) error {
	type plain Profile
	var raw struct {
		plain
		Misspelled *bool `json:"onboadingComplete"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = Profile(raw.plain)
	if raw.Misspelled != nil && *raw.Misspelled {
		p.OnboardingComplete = true
	}
	return nil
}

// ProfilePatch holds the fields to change; nil fields are left alone.
type ProfilePatch struct {
	Name               *string
	DOB                *string
	OnboardingComplete *bool
}

// Apply returns p with the patch merged in.
func (p Profile) Apply(patch ProfilePatch) Profile {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.DOB != nil {
		p.DOB = *patch.DOB
	}
	if patch.OnboardingComplete != nil {
		p.OnboardingComplete = *patch.OnboardingComplete
	}
	return p
}
