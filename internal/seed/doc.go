// Package seed installs the built-in demo dataset: three rooms, nine
// devices and two automation rules, matching what a fresh installation
// ships with. It also implements the full factory reset used by the
// reset endpoint.
package seed
