package config

const templateConfig = `# zcurate workspace configuration
# Relative paths resolve against the directory containing .zcurate/.

[catalog]
path = "data/spec.csv"
# format = "csv"          # csv, tsv or sqlite; inferred from the extension
id_column = "id"
ra_column = "ra"
dec_column = "dec"
z_column = "z"
flag_column = "zflag"
spectrum_column = "spec1d"
keep_columns = []
# selection_column = "use"

[catalog.bounding_box]
enabled = false
ra_min = 0.0
ra_max = 360.0
dec_min = -90.0
dec_max = 90.0

[flags]
scheme = "decimal-code"  # or fixed-threshold
lower_limit = 0.0
upper_limit = 0.0
zero_limit = false

[flags.classes]
"1" = ["1"]
"2" = ["2"]
"3" = ["3", "9"]
"4" = ["4"]

[match]
enabled = false
path = ""
id_column = "id"
ra_column = "ra"
dec_column = "dec"
z_column = "zphot"
max_separation = "1arcsec"

[spectra]
dir = "spectra"
profile = "ascii"
flux_scale = 1.0
placeholder_on_error = false
cache_ttl = "10m"

[working]
path = "data/working.csv"

[review]
mode = "resume"          # new or resume
verified = "unverified"  # all, verified or unverified
zmin = 0.0
zmax = 10.0
phot_filter = "ignore"   # ignore, outlier, inlier or none
quality = []
sample_percent = 100.0
# seed = 42
buffer = "data/buffer.csv"

[review.output]
path = "data/reviewed.csv"

[final]
path = "data/final.csv"

[display]
wavelength_type = "vacuum"
lines = "primary"        # all, primary or none
z_step = 0.0005

[log]
level = "info"
max_size_mb = 10
max_backups = 3
`
