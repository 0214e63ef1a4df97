// Package tenant manages the organizations that user accounts can belong
// to. A tenant is a billing/organizational unit; users reference a tenant
// through an optional foreign key, so deleting a tenant orphans its users
// rather than removing them.
package tenant
