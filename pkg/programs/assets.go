package programs

import "sort"

var assets = map[string][]byte{
	"frame0.txt": []byte(`/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/
      o
   o
                                    ><>
    o          _      _
        __   /  \____/  \
   o   /  \__|          |~~
      |  o               >
       \___/  \______/ ~~
                                          <><

/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/
`),
	"frame1.txt": []byte(`/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/
    o
      o
                                   ><>
  o              _      _
          __   /  \____/  \
     o   /  \__|          |~~
        |  o               >
         \___/  \______/ ~~
                                           <><

/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/
`),
}

// Asset returns the data file name, if the programs ship one.
func Asset(name string) ([]byte, bool) {
	data, ok := assets[name]
	return data, ok
}

func assetNames() []string {
	names := make([]string, 0, len(assets))
	for name := range assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
