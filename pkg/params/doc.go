// Package params translates the generic default_parameters mapping of a
// provider config into the parameter names a vendor API expects.
//
// Each vendor declares a Table. When a logical parameter may be spelled more
// than one way, the vendor's own documented spelling is listed first and
// wins; generic snake_case spellings follow as fallbacks.
package params
