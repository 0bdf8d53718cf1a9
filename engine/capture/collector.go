// Package capture collects the labelled photos for one repair session.
package capture

import (
	"fmt"

	"github.com/zester4/fixium/engine/domain"
)

// Collector owns the ordered photo list for a session. Duplicate roles are
// allowed; readers that want one photo per role take the first match, so
// later duplicates are shadowed by insertion order.
type Collector struct {
	photos []domain.CapturedPhoto
}

// New creates an empty Collector.
func New() *Collector {
	return &Collector{}
}

// Add appends a photo after validating its role and payload.
func (c *Collector) Add(p domain.CapturedPhoto) error {
	if err := domain.ValidatePhoto(p); err != nil {
		return err
	}
	c.photos = append(c.photos, p)
	return nil
}

// Remove drops the photo with the given id. Unknown ids are a no-op.
func (c *Collector) Remove(id string) {
	kept := c.photos[:0]
	for _, p := range c.photos {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	c.photos = kept
}

// Clear drops all photos.
func (c *Collector) Clear() {
	c.photos = nil
}

// Photos returns the photos in capture order.
func (c *Collector) Photos() []domain.CapturedPhoto {
	out := make([]domain.CapturedPhoto, len(c.photos))
	copy(out, c.photos)
	return out
}

// Len returns the number of captured photos.
func (c *Collector) Len() int { return len(c.photos) }

// FirstByRole returns the first photo captured with the given role.
func (c *Collector) FirstByRole(role domain.PhotoRole) (domain.CapturedPhoto, bool) {
	for _, p := range c.photos {
		if p.Role == role {
			return p, true
		}
	}
	return domain.CapturedPhoto{}, false
}

// Complete reports whether every required role has at least one photo,
// regardless of capture order or duplicates.
func (c *Collector) Complete() bool {
	for _, role := range domain.RequiredPhotoRoles {
		if _, ok := c.FirstByRole(role); !ok {
			return false
		}
	}
	return true
}

// NextRole returns the first required role that has no photo yet. The second
// return is false once every role is satisfied.
func (c *Collector) NextRole() (domain.PhotoRole, bool) {
	for _, role := range domain.RequiredPhotoRoles {
		if _, ok := c.FirstByRole(role); !ok {
			return role, true
		}
	}
	return "", false
}

// CanProceed reports whether analysis may begin: at least one photo of any
// role is enough.
func (c *Collector) CanProceed() bool {
	return len(c.photos) > 0
}

// ContinueLabel is the capture-screen CTA text for the current photo set.
func (c *Collector) ContinueLabel() string {
	if c.Complete() {
		return "Analyze Photos"
	}
	if len(c.photos) == 1 {
		return "Continue with 1 Photo"
	}
	return fmt.Sprintf("Continue with %d Photos", len(c.photos))
}
