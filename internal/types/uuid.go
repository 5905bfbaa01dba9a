package types

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	UUID_PREFIX_TENANT           = "ten"
	UUID_PREFIX_SUBSCRIPTION     = "subs"
	UUID_PREFIX_PLAN             = "plan"
	UUID_PREFIX_LIFECYCLE_EVENT  = "lce"
	UUID_PREFIX_WEBHOOK_EVENT    = "whe"
	UUID_PREFIX_ADMIN_AUDIT      = "aud"
	UUID_PREFIX_USAGE            = "usg"
	UUID_PREFIX_ALERT            = "alert"
	UUID_PREFIX_PROVISIONING_RUN = "prun"
	UUID_PREFIX_ROLE             = "role"
	UUID_PREFIX_MODULE           = "mod"
	UUID_PREFIX_DEPARTMENT       = "dept"
	UUID_PREFIX_POSITION         = "pos"
	UUID_PREFIX_PERMISSION       = "perm"
	UUID_PREFIX_USER             = "user"
	UUID_PREFIX_EXPORT           = "exp"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// GenerateUUIDWithPrefix returns an identifier such as ten_01HXYZ...
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}
