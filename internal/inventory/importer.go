package inventory

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/HerbHall/netwarden/pkg/models"
)

// PasswordEncrypter produces the stored blob for a plaintext password.
// Satisfied by *vault.Vault.
type PasswordEncrypter interface {
	EncryptPassword(plain string) (string, error)
}

// ImportFile is the YAML document accepted by Import.
type ImportFile struct {
	Routers        []ImportDevice `yaml:"routers"`
	WindowsServers []ImportDevice `yaml:"windows_servers"`
}

// ImportDevice is one device entry in an import file.
type ImportDevice struct {
	Name          string `yaml:"name"`
	IPAddress     string `yaml:"ip_address"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	SNMPCommunity string `yaml:"snmp_community"`
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// ImportFromFile reads a YAML device list and inserts every device not
// already registered at the same address.
func (s *Store) ImportFromFile(ctx context.Context, path string, enc PasswordEncrypter) (ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read import file: %w", err)
	}
	var f ImportFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return ImportResult{}, fmt.Errorf("parse import file: %w", err)
	}
	return s.Import(ctx, f, enc)
}

// Import inserts the devices in f. Passwords are encrypted before they are
// stored; an entry with a password but no encrypter fails the import.
func (s *Store) Import(ctx context.Context, f ImportFile, enc PasswordEncrypter) (ImportResult, error) {
	var res ImportResult
	groups := []struct {
		class   models.DeviceClass
		devices []ImportDevice
	}{
		{models.DeviceClassRouter, f.Routers},
		{models.DeviceClassWindowsServer, f.WindowsServers},
	}

	for _, g := range groups {
		for i, entry := range g.devices {
			if entry.IPAddress == "" {
				return res, fmt.Errorf("%s[%d]: ip_address is required", g.class, i)
			}

			_, err := s.FindByAddress(ctx, g.class, entry.IPAddress)
			if err == nil {
				res.Skipped++
				continue
			}
			if !errors.Is(err, ErrDeviceNotFound) {
				return res, err
			}

			d := &models.Device{
				Class:         g.class,
				Name:          entry.Name,
				IPAddress:     entry.IPAddress,
				Username:      entry.Username,
				SNMPCommunity: entry.SNMPCommunity,
			}
			if d.Name == "" {
				d.Name = entry.IPAddress
			}
			if entry.Password != "" {
				if enc == nil {
					return res, fmt.Errorf("%s %s: password given but no vault configured", g.class, entry.IPAddress)
				}
				blob, err := enc.EncryptPassword(entry.Password)
				if err != nil {
					return res, fmt.Errorf("%s %s: %w", g.class, entry.IPAddress, err)
				}
				d.PasswordEncrypted = blob
			}

			if err := s.InsertDevice(ctx, d); err != nil {
				return res, err
			}
			res.Created++
		}
	}
	return res, nil
}
