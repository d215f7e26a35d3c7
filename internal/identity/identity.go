// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package identity

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// SignatureArchiveSuffix is appended to a primary archive name to derive the
// name of its detached signature archive.
const SignatureArchiveSuffix = ".sigzip"

// PackageIdentity identifies a single version of a package. Names compare
// case-insensitively; versions follow semantic version precedence.
type PackageIdentity struct {
	Name    string
	Version string
}

// New creates a package identity.
func New(name, version string) PackageIdentity {
	return PackageIdentity{Name: name, Version: version}
}

// Key returns the stable, lowercase archive name for this package version.
func (p PackageIdentity) Key() string {
	return strings.ToLower(p.Name + "-" + p.Version)
}

// SameName indicates if the two identities refer to the same package.
func (p PackageIdentity) SameName(o PackageIdentity) bool {
	return strings.EqualFold(p.Name, o.Name)
}

// Compare orders two identities by semantic version precedence.
// Identities whose versions do not parse fall back to lexical order.
func (p PackageIdentity) Compare(o PackageIdentity) int {
	pv, err1 := semver.StrictNewVersion(strings.ToLower(p.Version))
	ov, err2 := semver.StrictNewVersion(strings.ToLower(o.Version))
	if err1 != nil || err2 != nil {
		return strings.Compare(p.Version, o.Version)
	}
	return pv.Compare(ov)
}

// Valid indicates if the version is a well formed semantic version.
func (p PackageIdentity) Valid() bool {
	if p.Name == "" {
		return false
	}
	_, err := semver.StrictNewVersion(strings.ToLower(p.Version))
	return err == nil
}

// SignatureArchiveName returns the name of the signature archive paired with
// the given primary archive.
func SignatureArchiveName(name string) string {
	return name + SignatureArchiveSuffix
}

// IsSignatureArchive indicates if the given name denotes a signature archive.
func IsSignatureArchive(name string) bool {
	return strings.HasSuffix(name, SignatureArchiveSuffix)
}

// PrimaryArchiveName recovers the paired primary archive name from a
// signature archive name.
func PrimaryArchiveName(name string) string {
	return strings.TrimSuffix(name, SignatureArchiveSuffix)
}

var archiveNamePattern = regexp.MustCompile(`^(.+)-(\d+\.\d+\.\d+.*)$`)

// Parse recovers a package identity from a cached archive name. It returns
// false for staging files, signature archives and any name that does not end
// in a well formed semantic version.
func Parse(name string) (PackageIdentity, bool) {
	if strings.HasPrefix(name, ".") || IsSignatureArchive(name) {
		return PackageIdentity{}, false
	}

	m := archiveNamePattern.FindStringSubmatch(name)
	if m == nil {
		return PackageIdentity{}, false
	}

	if _, err := semver.StrictNewVersion(m[2]); err != nil {
		return PackageIdentity{}, false
	}

	return PackageIdentity{Name: m[1], Version: m[2]}, true
}
