package component

import "github.com/wassette-project/wassette/internal/wasserr"

func errAlreadyLoaded(id ID) error {
	return wasserr.Newf(wasserr.AlreadyLoaded, "component %q is already loaded", id)
}

func errUnknownComponent(id ID) error {
	return wasserr.Newf(wasserr.UnknownComponent, "no component registered with id %q", id)
}
